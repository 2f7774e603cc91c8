package domain

// NormalizedRecord is one cleaned row of tick data.
type NormalizedRecord struct {
	Time  string  `json:"time"` // "HH:MM:SS"
	Price float64 `json:"price"`
	NP1   float64 `json:"np1"`
	NP2   float64 `json:"np2"`
	PRF   float64 `json:"prf"`
}

// Output column names, in projection order.
const (
	ColumnTime  = "time"
	ColumnPrice = "price"
	ColumnNP1   = "np1"
	ColumnNP2   = "np2"
	ColumnPRF   = "prf"
)

// RecordColumns lists the projected output columns.
var RecordColumns = []string{ColumnTime, ColumnPrice, ColumnNP1, ColumnNP2, ColumnPRF}
