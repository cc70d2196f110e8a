package fsys

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t,
		FlagAlloc|FlagUnalloc|FlagMeta|FlagContent,
		Flags(0).Normalize())

	require.Equal(t,
		FlagAlloc|FlagMeta|FlagContent,
		FlagAlloc.Normalize())

	require.Equal(t,
		FlagAlloc|FlagUnalloc|FlagMeta,
		FlagMeta.Normalize())
}

func TestAdmits(t *testing.T) {
	all := Flags(0).Normalize()
	require.True(t, all.Admits(FlagAlloc|FlagMeta))
	require.True(t, all.Admits(FlagUnalloc|FlagContent))

	allocOnly := (FlagAlloc | FlagMeta | FlagContent)
	require.True(t, allocOnly.Admits(FlagAlloc|FlagContent))
	require.False(t, allocOnly.Admits(FlagUnalloc|FlagContent))

	metaOnly := (FlagAlloc | FlagUnalloc | FlagMeta)
	require.False(t, metaOnly.Admits(FlagAlloc|FlagContent))

	// A block carrying both classes passes a single-class filter.
	require.True(t, metaOnly.Admits(FlagAlloc|FlagMeta|FlagContent))
}

func TestErrorKinds(t *testing.T) {
	err := E(KindWalkRange, "fat_block_walk", "start block: %d", 99)
	require.EqualError(t, err, "fat_block_walk: invalid walk range: start block: 99")
	require.True(t, IsKind(err, KindWalkRange))
	require.False(t, IsKind(err, KindRead))

	wrapped := fmt.Errorf("outer: %w", err)
	require.True(t, IsKind(wrapped, KindWalkRange))
}

func TestParseType(t *testing.T) {
	for s, want := range map[string]Type{
		"fat12": TypeFAT12,
		"fat16": TypeFAT16,
		"fat32": TypeFAT32,
		"fat":   TypeFATAuto,
		"xtaf":  TypeFATAuto,
		"reg":   TypeReg,
		"regf":  TypeReg,
		"ext4":  TypeUnknown,
	} {
		require.Equal(t, want, ParseType(s), "ParseType(%q)", s)
	}
}
