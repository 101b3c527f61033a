package topics

const (
	// Lotes de apostas persistidos
	BatchStored = "lottery_batch_stored"

	// Resultado do sorteio por agência
	DrawResults = "lottery_draw_results"
)
