package types

import "fmt"

// Partition is the tuple (export type, key value, granularity). Monthly
// values are canonical "YYYY-MM"; daily are "YYYY-MM-DD". Ordering is
// lexicographic on KeyValue, which coincides with chronological order for
// both formats.
type Partition struct {
	ExportType ExportType
	KeyValue   string
}

// Granularity returns the partition's granularity, derived from its export
// type.
func (p Partition) Granularity() Granularity {
	return p.ExportType.Granularity()
}

// Less reports whether p sorts before other. Partitions of different export
// types are ordered by export type first.
func (p Partition) Less(other Partition) bool {
	if p.ExportType != other.ExportType {
		return p.ExportType < other.ExportType
	}
	return p.KeyValue < other.KeyValue
}

// Equal reports whether p and other are the same partition tuple.
func (p Partition) Equal(other Partition) bool {
	return p.ExportType == other.ExportType && p.KeyValue == other.KeyValue
}

// DirName returns the directory name this partition occupies under a
// prefix, e.g. "BILLING_PERIOD=2025-05".
func (p Partition) DirName() string {
	return fmt.Sprintf("%s=%s", p.ExportType.PartitionKeyToken(), p.KeyValue)
}

func (p Partition) String() string {
	return p.DirName()
}
