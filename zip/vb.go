package zip

import (
	"sort"

	"github.com/divonlan/genozip-go/zcontext"
)

// sortedContexts returns table's contexts ordered by dict_id, so the
// sections a VB emits (and therefore their file offsets) are
// deterministic across runs given the same input.
func sortedContexts(table *zcontext.Table) []*zcontext.Context {
	ctxs := table.All()
	sort.Slice(ctxs, func(i, j int) bool { return ctxs[i].DictID < ctxs[j].DictID })
	return ctxs
}
