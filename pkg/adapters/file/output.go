package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/aretw0/trivium/pkg/domain"
)

// Output implements ports.OutputDocument as a Markdown file plus a JSON ledger of appended batches.
//
// Appends are two-phase: the ledger first records the batch as pending together with the
// hash of the document about to be written, then the document is replaced, then the ledger
// confirms the batch. A pending entry left by a crash is confirmed on the next Append when
// the document matches its hash, and dropped otherwise.
type Output struct {
	DocPath    string
	LedgerPath string
	mu         sync.Mutex
}

type ledger struct {
	Batches []string      `json:"batches"`
	Pending *pendingEntry `json:"pending,omitempty"`
}

type pendingEntry struct {
	BatchID string `json:"batch_id"`
	DocHash string `json:"doc_sha256"`
}

// NewOutput creates an output document.
func NewOutput(docPath, ledgerPath string) *Output {
	return &Output{DocPath: docPath, LedgerPath: ledgerPath}
}

// Read returns the document text.
func (o *Output) Read(ctx context.Context) (string, error) {
	data, err := os.ReadFile(o.DocPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read output document: %w", err)
	}
	return string(data), nil
}

// Contains reports whether batchID is recorded in the ledger.
func (o *Output) Contains(ctx context.Context, batchID string) (bool, error) {
	l, err := o.loadLedger()
	if err != nil {
		return false, err
	}
	return slices.Contains(l.Batches, batchID), nil
}

// Append adds text for batchID exactly once.
func (o *Output) Append(ctx context.Context, batchID, text string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	l, err := o.loadLedger()
	if err != nil {
		return false, err
	}
	if slices.Contains(l.Batches, batchID) {
		return false, nil
	}

	doc, err := o.Read(ctx)
	if err != nil {
		return false, err
	}

	if p := l.Pending; p != nil {
		l.Pending = nil
		if docHash(doc) == p.DocHash {
			l.Batches = append(l.Batches, p.BatchID)
			if p.BatchID == batchID {
				return true, o.saveLedger(l)
			}
		}
	}

	next := domain.AppendParagraph(doc, text)
	l.Pending = &pendingEntry{BatchID: batchID, DocHash: docHash(next)}
	if err := o.saveLedger(l); err != nil {
		return false, err
	}
	if err := writeAtomic(o.DocPath, []byte(next)); err != nil {
		return false, fmt.Errorf("failed to append to output document: %w", err)
	}

	l.Pending = nil
	l.Batches = append(l.Batches, batchID)
	if err := o.saveLedger(l); err != nil {
		return false, err
	}
	return true, nil
}

func docHash(doc string) string {
	sum := sha256.Sum256([]byte(doc))
	return hex.EncodeToString(sum[:])
}

func (o *Output) saveLedger(l *ledger) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if err := writeAtomic(o.LedgerPath, data); err != nil {
		return fmt.Errorf("failed to record batch in ledger: %w", err)
	}
	return nil
}

func (o *Output) loadLedger() (*ledger, error) {
	l := &ledger{Batches: []string{}}
	data, err := os.ReadFile(o.LedgerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger: %w", err)
	}
	return l, nil
}
