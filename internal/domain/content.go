package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNoContent = errors.New("no content snapshot stored")

type HeroSlide struct {
	Image       string `json:"image"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Palpite struct {
	Dia     string   `json:"dia"`
	Numeros []string `json:"numeros"`
}

type Resultado struct {
	Data      string   `json:"data"`
	Numeros   []string `json:"numeros"`
	Animal    string   `json:"animal"`
	Premiacao string   `json:"premiacao"`
}

type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Content is the document body persisted for every snapshot.
type Content struct {
	HeroSlides      []HeroSlide `json:"heroSlides"`
	PalpitesTitle   string      `json:"palpitesTitle"`
	Palpites        []Palpite   `json:"palpites"`
	ResultadosTitle string      `json:"resultadosTitle"`
	Resultados      []Resultado `json:"resultados"`
	WhatsappNumber  string      `json:"whatsappNumber"`
	YoutubeLink     string      `json:"youtubeLink"`
	Features        []Feature   `json:"features"`
}

// Normalize replaces nil sequences with empty ones so documents always
// encode arrays as [].
func (c Content) Normalize() Content {
	if c.HeroSlides == nil {
		c.HeroSlides = []HeroSlide{}
	}
	if c.Palpites == nil {
		c.Palpites = []Palpite{}
	}
	if c.Resultados == nil {
		c.Resultados = []Resultado{}
	}
	if c.Features == nil {
		c.Features = []Feature{}
	}
	for i := range c.Palpites {
		if c.Palpites[i].Numeros == nil {
			c.Palpites[i].Numeros = []string{}
		}
	}
	for i := range c.Resultados {
		if c.Resultados[i].Numeros == nil {
			c.Resultados[i].Numeros = []string{}
		}
	}
	return c
}

// Clone returns a deep copy.
func (c Content) Clone() Content {
	out := c
	out.HeroSlides = append([]HeroSlide{}, c.HeroSlides...)
	out.Features = append([]Feature{}, c.Features...)

	out.Palpites = make([]Palpite, len(c.Palpites))
	for i, p := range c.Palpites {
		p.Numeros = append([]string{}, p.Numeros...)
		out.Palpites[i] = p
	}
	out.Resultados = make([]Resultado, len(c.Resultados))
	for i, r := range c.Resultados {
		r.Numeros = append([]string{}, r.Numeros...)
		out.Resultados[i] = r
	}
	return out
}

// Snapshot is one full replacement of the site content. Snapshots are never
// updated in place; the one with the greatest UpdatedAt is current.
type Snapshot struct {
	ID uuid.UUID `json:"_id"`
	Content
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Newer reports whether s supersedes other under latest-wins ordering.
// Ids are UUIDv7, so equal timestamps fall back to creation order.
func (s *Snapshot) Newer(other *Snapshot) bool {
	if !s.UpdatedAt.Equal(other.UpdatedAt) {
		return s.UpdatedAt.After(other.UpdatedAt)
	}
	return s.ID.String() > other.ID.String()
}
