package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveBodyKey("hunter2", 3, 5)
	plain := []byte("CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO")
	ct, err := Encrypt(key, plain)
	require.NoError(t, err)
	require.Equal(t, 0, len(ct)%BlockSize)

	pt, err := Decrypt(key, ct)
	require.NoError(t, err)
	require.Equal(t, plain, pt[:len(plain)])
}

func TestHeaderAndBodyKeysDiffer(t *testing.T) {
	hk := DeriveHeaderKey("pw", 7, 2)
	bk := DeriveBodyKey("pw", 7, 2)
	require.NotEqual(t, hk, bk)
}

func TestPasswordTestRoundTrip(t *testing.T) {
	stored, err := MakePasswordTest("correct-horse")
	require.NoError(t, err)

	ok, err := CheckPassword("correct-horse", stored)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = CheckPassword("wrong-password", stored)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDistinctPositionsEncryptDifferently(t *testing.T) {
	plain := []byte("AAAAAAAAAAAAAAAA")
	k1 := DeriveBodyKey("pw", 1, 0)
	k2 := DeriveBodyKey("pw", 2, 0)
	ct1, err := Encrypt(k1, plain)
	require.NoError(t, err)
	ct2, err := Encrypt(k2, plain)
	require.NoError(t, err)
	require.NotEqual(t, ct1, ct2)
}
