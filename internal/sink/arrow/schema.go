package arrow

import (
	"github.com/apache/arrow/go/v17/arrow"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

// Field indices of the tick record schema
const (
	TimeIdx = iota
	PriceIdx
	NP1Idx
	NP2Idx
	PRFIdx
)

// GetTickRecordSchema returns the Arrow schema for normalized tick records
func GetTickRecordSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: domain.ColumnTime, Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: domain.ColumnPrice, Type: arrow.PrimitiveTypes.Float64, Nullable: false},
		{Name: domain.ColumnNP1, Type: arrow.PrimitiveTypes.Float64, Nullable: false},
		{Name: domain.ColumnNP2, Type: arrow.PrimitiveTypes.Float64, Nullable: false},
		{Name: domain.ColumnPRF, Type: arrow.PrimitiveTypes.Float64, Nullable: false},
	}, nil)
}
