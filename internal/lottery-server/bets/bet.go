package bets

// WinnerNumber é o número sorteado padrão
const WinnerNumber = 7574

// Bet é uma aposta recebida de uma agência. Valor imutável depois de criado.
type Bet struct {
	Agency    int
	FirstName string
	LastName  string
	Document  string
	BirthDate string
	Number    int
}

// Predicate decide se uma aposta é ganhadora. Deve ser pura.
type Predicate func(Bet) bool

// HasWon é o predicado padrão: a aposta ganha se o número for WinnerNumber
func HasWon(b Bet) bool { return b.Number == WinnerNumber }

// WinningNumber retorna um predicado para outro número sorteado
func WinningNumber(n int) Predicate {
	return func(b Bet) bool { return b.Number == n }
}
