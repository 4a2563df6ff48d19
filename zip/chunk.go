package zip

import "github.com/divonlan/genozip-go/datatype"

// chunkVBs splits body into Variable Blocks of at most targetSize
// bytes apiece, calling plugin.Unconsumed at each candidate boundary
// so a record is never split across two VBs (spec.md §2 "respecting
// line boundaries"). The final chunk may be shorter than targetSize;
// a single record longer than targetSize is never split: the VB that
// holds it grows past targetSize, targetSize bytes at a time, until it
// ends on a record boundary, the same never-split-a-record guarantee
// pamwriter.go's shard boundary logic gives a BAM record.
func chunkVBs(body []byte, targetSize int, plugin datatype.Plugin) [][]byte {
	var chunks [][]byte
	start := 0
	for start < len(body) {
		end := start + targetSize
		if end > len(body) {
			end = len(body)
		}
		for end < len(body) {
			unconsumed := plugin.Unconsumed(body[start:end])
			if end-unconsumed > start {
				end -= unconsumed
				break
			}
			end += targetSize
			if end > len(body) {
				end = len(body)
			}
		}
		chunks = append(chunks, body[start:end])
		start = end
	}
	return chunks
}
