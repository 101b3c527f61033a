package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/bets"
)

// File implementa Store num arquivo CSV:
// agency,first_name,last_name,document,birthdate,number
type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

// Append serializa o lote inteiro antes de abrir o arquivo e grava com uma única escrita.
// Em falha o arquivo é truncado de volta: o lote entra inteiro ou não entra.
func (f *File) Append(_ context.Context, batch []bets.Bet) error {
	if len(batch) == 0 {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, b := range batch {
		rec := []string{
			strconv.Itoa(b.Agency), b.FirstName, b.LastName, b.Document, b.BirthDate, strconv.Itoa(b.Number),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("%w: encode: %w", ErrStoreWrite, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStoreWrite, err)
	}

	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrStoreWrite, f.path, err)
	}
	prev, err := fh.Seek(0, io.SeekEnd)
	if err != nil {
		fh.Close()
		return fmt.Errorf("%w: seek %s: %w", ErrStoreWrite, f.path, err)
	}

	// escrita parcial (ENOSPC, EFBIG) volta o arquivo ao tamanho anterior:
	// nenhuma linha do lote fica gravada
	if _, err := fh.Write(buf.Bytes()); err != nil {
		if terr := fh.Truncate(prev); terr != nil {
			err = errors.Join(err, terr)
		}
		fh.Close()
		return fmt.Errorf("%w: write %s: %w", ErrStoreWrite, f.path, err)
	}
	if err := fh.Close(); err != nil {
		if terr := os.Truncate(f.path, prev); terr != nil {
			err = errors.Join(err, terr)
		}
		return fmt.Errorf("%w: close %s: %w", ErrStoreWrite, f.path, err)
	}
	return nil
}

// ScanAll lê todas as apostas; arquivo inexistente equivale a nenhuma aposta
func (f *File) ScanAll(_ context.Context) ([]bets.Bet, error) {
	fh, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStoreRead, f.path, err)
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = 6

	var out []bets.Bet
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrStoreRead, f.path, err)
		}
		agency, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: agency %q: %w", ErrStoreRead, rec[0], err)
		}
		number, err := strconv.Atoi(rec[5])
		if err != nil {
			return nil, fmt.Errorf("%w: number %q: %w", ErrStoreRead, rec[5], err)
		}
		out = append(out, bets.Bet{
			Agency:    agency,
			FirstName: rec[1],
			LastName:  rec[2],
			Document:  rec[3],
			BirthDate: rec[4],
			Number:    number,
		})
	}
	return out, nil
}
