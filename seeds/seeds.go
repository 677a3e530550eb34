package seeds

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/actuallystonmai/site-content/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Store interface {
	InsertSnapshot(ctx context.Context, snap *domain.Snapshot) error
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
}

// animals of the jogo do bicho table, in group order
var animals = []string{
	"Avestruz", "Águia", "Burro", "Borboleta", "Cachorro",
	"Cabra", "Carneiro", "Camelo", "Cobra", "Coelho",
	"Cavalo", "Elefante", "Galo", "Gato", "Jacaré",
	"Leão", "Macaco", "Porco", "Pavão", "Peru",
	"Touro", "Tigre", "Urso", "Veado", "Vaca",
}

var weekdays = []string{"Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado"}

var prizes = []string{"1º prêmio", "2º prêmio", "3º prêmio", "4º prêmio", "5º prêmio"}
var prizeWeights = []float64{0.4, 0.25, 0.15, 0.12, 0.08}

// Setup inserts a demo snapshot unless the store already has content.
func Setup(ctx context.Context, store Store) (*domain.Snapshot, error) {
	existing, err := store.LatestSnapshot(ctx)
	if err == nil {
		log.Info().Str("snapshot_id", existing.ID.String()).Msg("[seed] content already present, skipping")
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNoContent) {
		return nil, fmt.Errorf("check existing content: %w", err)
	}

	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC().Truncate(time.Microsecond)

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate snapshot id: %w", err)
	}

	snap := &domain.Snapshot{
		ID:        id,
		Content:   demoContent(rng, now),
		CreatedAt: now,
		UpdatedAt: now,
	}

	log.Info().Msg("[seed] inserting demo content")
	if err := store.InsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("insert demo content: %w", err)
	}

	log.Info().Str("snapshot_id", id.String()).Msg("[seed] seeding complete")
	return snap, nil
}

func demoContent(rng *rand.Rand, now time.Time) domain.Content {
	content := domain.Content{
		HeroSlides: []domain.HeroSlide{
			{Title: "Resultados todos os dias", Description: "Acompanhe os sorteios em tempo real"},
			{Title: "Palpites da semana", Description: "Os números mais quentes"},
		},
		PalpitesTitle:   "Palpites do dia",
		ResultadosTitle: "Últimos resultados",
		WhatsappNumber:  "5511999999999",
		YoutubeLink:     "https://www.youtube.com/",
		Features: []domain.Feature{
			{Title: "Rápido", Description: "Resultados publicados minutos após o sorteio"},
			{Title: "Confiável", Description: "Conferido com a fonte oficial"},
		},
	}

	for i := range 3 {
		day := now.AddDate(0, 0, i)
		content.Palpites = append(content.Palpites, domain.Palpite{
			Dia:     weekdays[day.Weekday()],
			Numeros: randomNumbers(rng, 4),
		})
	}

	for i := range 5 {
		day := now.AddDate(0, 0, -i)
		content.Resultados = append(content.Resultados, domain.Resultado{
			Data:      day.Format("02/01/2006"),
			Numeros:   randomNumbers(rng, 5),
			Animal:    animals[rng.Intn(len(animals))],
			Premiacao: weightedChoice(rng, prizes, prizeWeights),
		})
	}

	return content
}

// randomNumbers returns n distinct two-digit numbers as strings
func randomNumbers(rng *rand.Rand, n int) []string {
	seen := make(map[int]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		v := rng.Intn(100)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, fmt.Sprintf("%02d", v))
	}
	return out
}

func weightedChoice(rng *rand.Rand, choices []string, weights []float64) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return choices[i]
		}
	}
	return choices[len(choices)-1]
}
