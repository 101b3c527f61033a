package events

// Evento emitido pelo lottery-server após persistir um lote de apostas.
type BatchStored struct {
	EventID  string `json:"event_id"`
	Agency   int    `json:"agency"`
	Count    int    `json:"count"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
