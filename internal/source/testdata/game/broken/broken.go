package broken

type Thing struct {
	Value float32 `stat:""`
}

var _ = undefinedSymbol
