package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirokane-labs/cardex/internal/domain"
	"github.com/shirokane-labs/cardex/internal/domain/card"
)

const sampleCorpus = `[
	{"name": "ゴブリン", "hp": 2, "attack": 1, "cost": 1,
	 "class": "ニュートラル", "rarity": "ブロンズ", "type": "フォロワー",
	 "effect_1": "特になし"},
	{"name": "エンジェルスナイプ", "cost": 1, "type": "スペル",
	 "effect_1": "相手のフォロワー1体に1ダメージ。",
	 "qa": [{"question": "対象は選べますか？", "answer": "はい。"}]},
	{"name": ""}
]`

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	store := New(writeCorpus(t, sampleCorpus), nil)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	records, err := store.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (nameless dropped), got %d", len(records))
	}

	goblin := records[0]
	if hp, ok := goblin.Numeric(card.FieldHP); !ok || hp != 2 {
		t.Errorf("expected hp=2, got %g (ok=%v)", hp, ok)
	}
	if typ, _ := goblin.Category(card.FieldType); typ != "フォロワー" {
		t.Errorf("expected type フォロワー, got %q", typ)
	}

	spell := records[1]
	if _, ok := spell.Numeric(card.FieldHP); ok {
		t.Error("spell without hp should report the field missing")
	}
	if len(spell.QAPairs()) != 1 {
		t.Errorf("expected 1 QA pair, got %d", len(spell.QAPairs()))
	}
}

func TestRecords_BeforeLoad(t *testing.T) {
	store := New("nonexistent.json", nil)
	if _, err := store.Records(); !errors.Is(err, domain.ErrCorpusNotLoaded) {
		t.Errorf("expected ErrCorpusNotLoaded, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "missing.json"), nil)
	if err := store.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReload_SwapsSnapshot(t *testing.T) {
	path := writeCorpus(t, sampleCorpus)
	store := New(path, nil)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	before, _ := store.Records()

	if err := os.WriteFile(path, []byte(`[{"name": "新カード", "hp": 9}]`), 0o600); err != nil {
		t.Fatalf("rewrite corpus: %v", err)
	}
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	after, _ := store.Records()
	if len(after) != 1 || after[0].Title() != "新カード" {
		t.Fatalf("reload did not swap snapshot: %d records", len(after))
	}
	// The old snapshot stays intact for readers that captured it.
	if len(before) != 2 {
		t.Errorf("previous snapshot mutated: %d records", len(before))
	}
}

func TestReload_FailureKeepsOldSnapshot(t *testing.T) {
	path := writeCorpus(t, sampleCorpus)
	store := New(path, nil)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("corrupt corpus: %v", err)
	}
	if err := store.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error for corrupt file")
	}

	records, err := store.Records()
	if err != nil || len(records) != 2 {
		t.Errorf("failed reload must keep the previous snapshot, got %d records (err=%v)", len(records), err)
	}
}
