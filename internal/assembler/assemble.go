package assembler

import (
	"strings"

	"github.com/actuallystonmai/site-content/internal/domain"
	"github.com/tidwall/gjson"
)

// Assemble pairs the positional arrays of in into a content document.
// imagePaths[i] becomes the image of the i-th hero slide; slides without a
// matching image get "". Every collection is sized by its key array alone.
func Assemble(in Input, imagePaths []string) domain.Content {
	slides := make([]domain.HeroSlide, 0, len(in.SlideTitles))
	for i, title := range in.SlideTitles {
		slides = append(slides, domain.HeroSlide{
			Image:       at(imagePaths, i),
			Title:       title,
			Description: at(in.SlideDescriptions, i),
		})
	}

	palpites := make([]domain.Palpite, 0, len(in.PalpitesDias))
	for i, dia := range in.PalpitesDias {
		palpites = append(palpites, domain.Palpite{
			Dia:     dia,
			Numeros: coerceNumbers(numbersAt(in.PalpitesNumeros, i)),
		})
	}

	resultados := make([]domain.Resultado, 0, len(in.ResultadosDatas))
	for i, data := range in.ResultadosDatas {
		resultados = append(resultados, domain.Resultado{
			Data:      data,
			Numeros:   coerceNumbers(numbersAt(in.ResultadosNumeros, i)),
			Animal:    at(in.ResultadosAnimais, i),
			Premiacao: at(in.ResultadosPremiacoes, i),
		})
	}

	features := make([]domain.Feature, 0, len(in.FeatureTitles))
	for i, title := range in.FeatureTitles {
		features = append(features, domain.Feature{
			Title:       title,
			Description: at(in.FeatureDescriptions, i),
		})
	}

	return domain.Content{
		HeroSlides:      slides,
		PalpitesTitle:   in.PalpitesTitle,
		Palpites:        palpites,
		ResultadosTitle: in.ResultadosTitle,
		Resultados:      resultados,
		WhatsappNumber:  in.WhatsappNumber,
		YoutubeLink:     in.YoutubeLink,
		Features:        features,
	}
}

// coerceNumbers turns a numeros entry into a sequence of strings.
// A structured entry is copied as is. An encoded entry must be a JSON array
// of scalars; strings, numbers and booleans keep their text form. Anything
// else (absent, malformed, not an array, nested values, null) yields an
// empty sequence instead of an error, so client mistakes are swallowed here.
func coerceNumbers(f NumbersField) []string {
	if f.Structured {
		return append([]string{}, f.Sequence...)
	}

	raw := strings.TrimSpace(f.Encoded)
	if raw == "" || !gjson.Valid(raw) {
		return []string{}
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		return []string{}
	}

	elems := parsed.Array()
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		switch e.Type {
		case gjson.String, gjson.Number, gjson.True, gjson.False:
			out = append(out, e.String())
		default:
			return []string{}
		}
	}
	return out
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}

func numbersAt(list []NumbersField, i int) NumbersField {
	if i < len(list) {
		return list[i]
	}
	return NumbersField{}
}
