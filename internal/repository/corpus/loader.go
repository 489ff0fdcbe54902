package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/shirokane-labs/cardex/internal/domain"
	"github.com/shirokane-labs/cardex/internal/domain/card"
)

// Store owns the in-memory card corpus. Readers get an immutable snapshot;
// Reload swaps the whole snapshot atomically so a reader never observes a
// partially updated collection.
type Store struct {
	path     string
	logger   *zap.Logger
	snapshot atomic.Pointer[snapshot]
}

type snapshot struct {
	records []card.Record
}

// New creates a corpus store reading from a JSON dataset file.
func New(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// recordDTO is the on-disk card shape.
type recordDTO struct {
	Name     string   `json:"name"`
	HP       *float64 `json:"hp"`
	Attack   *float64 `json:"attack"`
	Cost     *float64 `json:"cost"`
	Class    string   `json:"class"`
	Rarity   string   `json:"rarity"`
	Type     string   `json:"type"`
	Effect1  string   `json:"effect_1"`
	Effect2  string   `json:"effect_2"`
	Effect3  string   `json:"effect_3"`
	Effect4  string   `json:"effect_4"`
	Effect5  string   `json:"effect_5"`
	Effect6  string   `json:"effect_6"`
	Effect7  string   `json:"effect_7"`
	Effect8  string   `json:"effect_8"`
	Effect9  string   `json:"effect_9"`
	QA       []qaDTO  `json:"qa"`
	Keywords []string `json:"keywords"`
	Flavor   string   `json:"flavor"`
}

type qaDTO struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Load reads the dataset and publishes a fresh snapshot.
func (s *Store) Load(_ context.Context) error {
	data, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		return fmt.Errorf("read corpus %s: %w", s.path, err)
	}

	var dtos []recordDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return fmt.Errorf("parse corpus %s: %w", s.path, err)
	}

	records := make([]card.Record, 0, len(dtos))
	for _, d := range dtos {
		if d.Name == "" {
			continue
		}
		records = append(records, toRecord(d))
	}

	s.snapshot.Store(&snapshot{records: records})
	s.logger.Info("corpus loaded",
		zap.String("path", s.path),
		zap.Int("cards", len(records)),
	)
	return nil
}

// Reload replaces the corpus wholesale. The previous snapshot stays valid
// for readers that already hold it.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Records returns the current snapshot's record list. The slice is shared
// and read-only: callers must not modify it.
func (s *Store) Records() ([]card.Record, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, domain.ErrCorpusNotLoaded
	}
	return snap.records, nil
}

// Len returns the number of cards in the current snapshot, 0 before the
// first load.
func (s *Store) Len() int {
	if snap := s.snapshot.Load(); snap != nil {
		return len(snap.records)
	}
	return 0
}

// Replace publishes an in-memory record list directly, bypassing the
// dataset file. Used by tests and embedded setups.
func (s *Store) Replace(records []card.Record) {
	s.snapshot.Store(&snapshot{records: append([]card.Record(nil), records...)})
}

func toRecord(d recordDTO) card.Record {
	numerics := map[string]float64{}
	if d.HP != nil {
		numerics[card.FieldHP] = *d.HP
	}
	if d.Attack != nil {
		numerics[card.FieldAttack] = *d.Attack
	}
	if d.Cost != nil {
		numerics[card.FieldCost] = *d.Cost
	}

	categories := map[string]string{}
	if d.Class != "" {
		categories[card.FieldClass] = d.Class
	}
	if d.Rarity != "" {
		categories[card.FieldRarity] = d.Rarity
	}
	if d.Type != "" {
		categories[card.FieldType] = d.Type
	}

	effects := []string{
		d.Effect1, d.Effect2, d.Effect3, d.Effect4, d.Effect5,
		d.Effect6, d.Effect7, d.Effect8, d.Effect9,
	}

	qa := make([]card.QA, 0, len(d.QA))
	for _, q := range d.QA {
		qa = append(qa, card.QA{Question: q.Question, Answer: q.Answer})
	}

	return card.New(d.Name, numerics, categories, effects, qa, d.Keywords, d.Flavor)
}
