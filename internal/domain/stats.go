package domain

// BlockTypeStats counts blocks per type.
func BlockTypeStats(blocks []Block) map[BlockType]int {
	stats := make(map[BlockType]int)
	for _, b := range blocks {
		stats[b.Type]++
	}
	return stats
}

// HistoryDiff describes what changed between two snapshots, by block id.
type HistoryDiff struct {
	Added    []Block `json:"added"`
	Removed  []Block `json:"removed"`
	Modified []Block `json:"modified"`
}

// Empty reports whether no block was added, removed or modified. Pure
// reorders produce an empty diff.
func (d HistoryDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// DiffBlocks compares snapshot a to snapshot b.
func DiffBlocks(a, b []Block) HistoryDiff {
	var d HistoryDiff
	for _, nb := range b {
		i := FindBlock(a, nb.ID)
		if i < 0 {
			d.Added = append(d.Added, nb)
			continue
		}
		if !EqualBlocks(a[i:i+1], []Block{nb}) {
			d.Modified = append(d.Modified, nb)
		}
	}
	for _, ob := range a {
		if FindBlock(b, ob.ID) < 0 {
			d.Removed = append(d.Removed, ob)
		}
	}
	return d
}
