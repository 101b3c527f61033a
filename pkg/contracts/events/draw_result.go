package events

// Evento publicado no tópico "lottery_draw_results", um por agência após o sorteio
type DrawResult struct {
	EventID  string `json:"event_id"`
	Agency   int    `json:"agency"`
	Winners  int    `json:"winners"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
