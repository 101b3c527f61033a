// Package protocol implementa o protocolo de linhas entre agências e o lottery-server.
//
// Formato (texto, uma mensagem por linha terminada em '\n', sem prefixo de tamanho):
//
//	<tag> <agencia>] <discriminador> <payload...>
//
//	[AGENCY 3] Bet 7574,Juan,Perez,30904465,1999-03-17
//	[AGENCY 3] BetBatchEnd
//	[AGENCY 3] ReadyForLottery
//
// Respostas do servidor: a linha BetBatchEnd ecoada sem alteração e "Winners <n>".
package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/bets"
)

var (
	// ErrConnectionClosed o par fechou a conexão (ou leu/escreveu zero bytes)
	ErrConnectionClosed = errors.New("connection closed")
	// ErrMalformedRecord linha que não respeita o formato
	ErrMalformedRecord = errors.New("malformed record")
)

const (
	markerBatchEnd = "BetBatchEnd"
	markerReady    = "ReadyForLottery"
	tagBet         = "Bet"
	winnersPrefix  = "Winners"

	// betFields ordem: número, nome, sobrenome, documento, nascimento
	betFields = 5

	readChunk = 1024
)

// Kind identifica o tipo de mensagem decodificada
type Kind int

const (
	KindBet Kind = iota
	KindBatchEnd
	KindReadyForLottery
)

func (k Kind) String() string {
	switch k {
	case KindBet:
		return "bet"
	case KindBatchEnd:
		return "batch_end"
	case KindReadyForLottery:
		return "ready_for_lottery"
	default:
		return "unknown"
	}
}

// Message é uma linha decodificada. Bet só é preenchido quando Kind == KindBet.
// Raw guarda a linha original sem o '\n', usada para o eco do BetBatchEnd.
type Message struct {
	Kind   Kind
	Agency int
	Raw    string
	Bet    bets.Bet
}

// Reader enquadra um stream de bytes em linhas completas
type Reader struct {
	r     io.Reader
	buf   []byte
	chunk []byte
}

// NewReader cria um Reader sobre a conexão
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, chunk: make([]byte, readChunk)}
}

// ReadLines bloqueia até o buffer acumulado terminar em '\n' e devolve as linhas
// completas na ordem de chegada. Leitura de zero bytes ou EOF é ErrConnectionClosed;
// uma linha pela metade nunca é devolvida.
func (r *Reader) ReadLines() ([]string, error) {
	r.buf = r.buf[:0]
	for len(r.buf) == 0 || r.buf[len(r.buf)-1] != '\n' {
		n, err := r.r.Read(r.chunk)
		r.buf = append(r.buf, r.chunk[:n]...)
		if err != nil {
			if len(r.buf) > 0 && r.buf[len(r.buf)-1] == '\n' {
				break // a próxima leitura devolve o fechamento
			}
			if errors.Is(err, io.EOF) {
				return nil, ErrConnectionClosed
			}
			return nil, fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}
		if n == 0 {
			return nil, ErrConnectionClosed
		}
	}

	text := string(r.buf[:len(r.buf)-1])
	return strings.Split(text, "\n"), nil
}

// ReadMessages lê e decodifica as linhas disponíveis. Se uma linha for inválida,
// devolve as mensagens anteriores a ela junto com o erro, para que sejam tratadas em ordem.
func (r *Reader) ReadMessages() ([]Message, error) {
	lines, err := r.ReadLines()
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(lines))
	for _, line := range lines {
		m, err := ParseLine(line)
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ParseLine decodifica uma linha (sem o '\n')
func ParseLine(line string) (Message, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 3 {
		return Message{}, fmt.Errorf("%w: expected at least 3 tokens in %q", ErrMalformedRecord, line)
	}

	agency, err := strconv.Atoi(strings.TrimSuffix(tokens[1], "]"))
	if err != nil {
		return Message{}, fmt.Errorf("%w: agency %q", ErrMalformedRecord, tokens[1])
	}

	msg := Message{Agency: agency, Raw: line}
	switch tokens[2] {
	case markerBatchEnd:
		msg.Kind = KindBatchEnd
	case markerReady:
		msg.Kind = KindReadyForLottery
	default:
		// sem discriminador o payload começa no terceiro token
		payload := tokens[2:]
		if tokens[2] == tagBet {
			payload = tokens[3:]
		}
		b, err := parseBet(agency, strings.Join(payload, " "))
		if err != nil {
			return Message{}, err
		}
		msg.Kind = KindBet
		msg.Bet = b
	}
	return msg, nil
}

func parseBet(agency int, payload string) (bets.Bet, error) {
	fields := strings.Split(payload, ",")
	if len(fields) != betFields {
		return bets.Bet{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRecord, betFields, len(fields))
	}
	number, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return bets.Bet{}, fmt.Errorf("%w: wager number %q", ErrMalformedRecord, fields[0])
	}
	return bets.Bet{
		Agency:    agency,
		Number:    number,
		FirstName: fields[1],
		LastName:  fields[2],
		Document:  fields[3],
		BirthDate: fields[4],
	}, nil
}

// WriteLine envia text + '\n' tolerando escritas parciais.
// Uma escrita de zero bytes encerra o envio em silêncio.
func WriteLine(w io.Writer, text string) error {
	b := []byte(text + "\n")
	sent := 0
	for sent < len(b) {
		n, err := w.Write(b[sent:])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}
		if n == 0 {
			return nil
		}
		sent += n
	}
	return nil
}

func FormatBet(b bets.Bet) string {
	return fmt.Sprintf("[AGENCY %d] %s %d,%s,%s,%s,%s",
		b.Agency, tagBet, b.Number, b.FirstName, b.LastName, b.Document, b.BirthDate)
}

func FormatBatchEnd(agency int) string {
	return fmt.Sprintf("[AGENCY %d] %s", agency, markerBatchEnd)
}

func FormatReady(agency int) string {
	return fmt.Sprintf("[AGENCY %d] %s", agency, markerReady)
}

func FormatWinners(n int) string {
	return fmt.Sprintf("%s %d", winnersPrefix, n)
}

// ParseWinners decodifica a resposta "Winners <n>"
func ParseWinners(line string) (int, error) {
	tokens := strings.Fields(line)
	if len(tokens) != 2 || tokens[0] != winnersPrefix {
		return 0, fmt.Errorf("%w: winners reply %q", ErrMalformedRecord, line)
	}
	n, err := strconv.Atoi(tokens[1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: winners count %q", ErrMalformedRecord, tokens[1])
	}
	return n, nil
}
