package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotJSONShape(t *testing.T) {
	snap := Snapshot{
		ID:        uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057"),
		Content:   Content{PalpitesTitle: "Palpites"}.Normalize(),
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "01890a5d-ac96-774b-bcce-b302099a8057", got["_id"])
	assert.Equal(t, "Palpites", got["palpitesTitle"])
	assert.Equal(t, []any{}, got["heroSlides"])
	assert.Equal(t, []any{}, got["features"])
	assert.Equal(t, "2024-01-02T03:04:05Z", got["updatedAt"])
}

func TestSnapshotNewer(t *testing.T) {
	now := time.Now()
	older := &Snapshot{ID: uuid.Must(uuid.NewV7()), UpdatedAt: now}
	newer := &Snapshot{ID: uuid.Must(uuid.NewV7()), UpdatedAt: now}
	stale := &Snapshot{ID: uuid.Must(uuid.NewV7()), UpdatedAt: now.Add(-time.Second)}

	assert.True(t, newer.Newer(older))
	assert.False(t, older.Newer(newer))
	assert.True(t, older.Newer(stale))
	assert.False(t, stale.Newer(older))
}

func TestContentCloneIsDeep(t *testing.T) {
	c := Content{
		Palpites:   []Palpite{{Dia: "Seg", Numeros: []string{"1"}}},
		HeroSlides: []HeroSlide{{Title: "A"}},
	}

	cp := c.Clone()
	cp.Palpites[0].Numeros[0] = "2"
	cp.HeroSlides[0].Title = "B"

	assert.Equal(t, "1", c.Palpites[0].Numeros[0])
	assert.Equal(t, "A", c.HeroSlides[0].Title)
}

func TestContentNormalize(t *testing.T) {
	c := Content{Resultados: []Resultado{{Data: "hoje"}}}.Normalize()

	assert.NotNil(t, c.HeroSlides)
	assert.NotNil(t, c.Palpites)
	assert.Equal(t, []string{}, c.Resultados[0].Numeros)
}
