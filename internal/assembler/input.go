package assembler

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// MaxEntries caps every array field, including sparse indexed ones.
const MaxEntries = 500

// Input is the explicit form of a content submission. Every field is
// optional; absent scalars are "" and absent arrays are empty.
type Input struct {
	PalpitesTitle   string `form:"palpitesTitle" validate:"max=100"`
	ResultadosTitle string `form:"resultadosTitle" validate:"max=100"`
	WhatsappNumber  string `form:"whatsappNumber"`
	YoutubeLink     string `form:"youtubeLink"`

	SlideTitles       []string `form:"slideTitles" validate:"max=500,dive,max=100"`
	SlideDescriptions []string `form:"slideDescriptions" validate:"max=500,dive,max=200"`

	PalpitesDias    []string       `form:"palpitesDias" validate:"max=500"`
	PalpitesNumeros []NumbersField `form:"palpitesNumeros" validate:"max=500"`

	ResultadosDatas      []string       `form:"resultadosDatas" validate:"max=500"`
	ResultadosNumeros    []NumbersField `form:"resultadosNumeros" validate:"max=500"`
	ResultadosAnimais    []string       `form:"resultadosAnimais" validate:"max=500"`
	ResultadosPremiacoes []string       `form:"resultadosPremiacoes" validate:"max=500"`

	FeatureTitles       []string `form:"featureTitles" validate:"max=500,dive,max=100"`
	FeatureDescriptions []string `form:"featureDescriptions" validate:"max=500,dive,max=300"`
}

// NumbersField is one positional numeros entry as received: either already
// a sequence, or a JSON-encoded string still to be decoded.
type NumbersField struct {
	Encoded    string
	Sequence   []string
	Structured bool
}

type InvalidInputError struct {
	Msg string
}

func (e *InvalidInputError) Error() string {
	return e.Msg
}

func IsInvalidInputError(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// Validate checks length limits on the submitted text.
func (in *Input) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Kind() {
		case reflect.Slice:
			msgs = append(msgs, fmt.Sprintf("%s accepts at most %s entries", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		}
	}
	return &InvalidInputError{Msg: strings.Join(msgs, "; ")}
}

// name, name[] | name[i] | name[i][] | name[i][j]
var keyPattern = regexp.MustCompile(`^([A-Za-z]+)(?:\[(\d*)\])?(?:\[(\d*)\])?$`)

type rawField struct {
	flat    []string
	indexed map[int]string
	nested  map[int]*nestedEntry
}

type nestedEntry struct {
	appended []string
	indexed  map[int]string
}

// values lays out name[i][] entries first, then name[i][j] sets position j.
func (n *nestedEntry) values() []string {
	out := append([]string{}, n.appended...)
	for _, j := range sortedKeys(n.indexed) {
		out = grow(out, j+1)
		out[j] = n.indexed[j]
	}
	return out
}

// ParseForm builds an Input from multipart or urlencoded form values.
// Array fields accept repeated "name", "name[]" and indexed "name[i]" keys;
// flat values take positions first and indexed keys then set position i.
func ParseForm(values map[string][]string) (Input, error) {
	fields := make(map[string]*rawField)

	// "name" sorts before "name[]", so mixed flat forms append in a fixed order
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vals := values[key]
		m := keyPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		name, first, second := m[1], m[2], m[3]
		hasFirst := strings.Contains(key, "[")
		hasSecond := strings.Count(key, "[") == 2

		f := fields[name]
		if f == nil {
			f = &rawField{indexed: map[int]string{}, nested: map[int]*nestedEntry{}}
			fields[name] = f
		}

		switch {
		case !hasFirst || (first == "" && !hasSecond):
			f.flat = append(f.flat, vals...)
		case first == "":
			// name[][x] has no position to land on
			continue
		default:
			idx, err := parseIndex(key, first)
			if err != nil {
				return Input{}, err
			}
			if !hasSecond {
				if len(vals) > 0 {
					f.indexed[idx] = vals[0]
				}
				continue
			}
			entry := f.nested[idx]
			if entry == nil {
				entry = &nestedEntry{indexed: map[int]string{}}
				f.nested[idx] = entry
			}
			if second == "" {
				entry.appended = append(entry.appended, vals...)
				continue
			}
			j, err := parseIndex(key, second)
			if err != nil {
				return Input{}, err
			}
			if len(vals) > 0 {
				entry.indexed[j] = vals[0]
			}
		}
	}

	in := Input{
		PalpitesTitle:        scalar(fields, "palpitesTitle"),
		ResultadosTitle:      scalar(fields, "resultadosTitle"),
		WhatsappNumber:       scalar(fields, "whatsappNumber"),
		YoutubeLink:          scalar(fields, "youtubeLink"),
		SlideTitles:          texts(fields, "slideTitles"),
		SlideDescriptions:    texts(fields, "slideDescriptions"),
		PalpitesDias:         texts(fields, "palpitesDias"),
		PalpitesNumeros:      numbers(fields, "palpitesNumeros"),
		ResultadosDatas:      texts(fields, "resultadosDatas"),
		ResultadosNumeros:    numbers(fields, "resultadosNumeros"),
		ResultadosAnimais:    texts(fields, "resultadosAnimais"),
		ResultadosPremiacoes: texts(fields, "resultadosPremiacoes"),
		FeatureTitles:        texts(fields, "featureTitles"),
		FeatureDescriptions:  texts(fields, "featureDescriptions"),
	}

	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// ParseJSON builds an Input from a JSON object body using the same field
// names as the form. A string where an array is expected counts as a
// one-element array.
func ParseJSON(body []byte) (Input, error) {
	if !gjson.ValidBytes(body) {
		return Input{}, &InvalidInputError{Msg: "request body is not valid JSON"}
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return Input{}, &InvalidInputError{Msg: "request body must be a JSON object"}
	}

	in := Input{
		PalpitesTitle:        doc.Get("palpitesTitle").String(),
		ResultadosTitle:      doc.Get("resultadosTitle").String(),
		WhatsappNumber:       doc.Get("whatsappNumber").String(),
		YoutubeLink:          doc.Get("youtubeLink").String(),
		SlideTitles:          jsonTexts(doc.Get("slideTitles")),
		SlideDescriptions:    jsonTexts(doc.Get("slideDescriptions")),
		PalpitesDias:         jsonTexts(doc.Get("palpitesDias")),
		PalpitesNumeros:      jsonNumbers(doc.Get("palpitesNumeros")),
		ResultadosDatas:      jsonTexts(doc.Get("resultadosDatas")),
		ResultadosNumeros:    jsonNumbers(doc.Get("resultadosNumeros")),
		ResultadosAnimais:    jsonTexts(doc.Get("resultadosAnimais")),
		ResultadosPremiacoes: jsonTexts(doc.Get("resultadosPremiacoes")),
		FeatureTitles:        jsonTexts(doc.Get("featureTitles")),
		FeatureDescriptions:  jsonTexts(doc.Get("featureDescriptions")),
	}

	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

func parseIndex(key, raw string) (int, error) {
	idx, err := strconv.Atoi(raw)
	if err != nil || idx >= MaxEntries {
		return 0, &InvalidInputError{Msg: fmt.Sprintf("%s: index out of range (max %d)", key, MaxEntries-1)}
	}
	return idx, nil
}

func scalar(fields map[string]*rawField, name string) string {
	f := fields[name]
	if f == nil {
		return ""
	}
	if len(f.flat) > 0 {
		return f.flat[0]
	}
	if v, ok := f.indexed[0]; ok {
		return v
	}
	return ""
}

func texts(fields map[string]*rawField, name string) []string {
	f := fields[name]
	if f == nil {
		return []string{}
	}

	out := append([]string{}, f.flat...)
	for _, idx := range sortedKeys(f.indexed) {
		out = grow(out, idx+1)
		out[idx] = f.indexed[idx]
	}
	return out
}

func numbers(fields map[string]*rawField, name string) []NumbersField {
	f := fields[name]
	if f == nil {
		return []NumbersField{}
	}

	out := make([]NumbersField, 0, len(f.flat))
	for _, v := range f.flat {
		out = append(out, NumbersField{Encoded: v})
	}
	for _, idx := range sortedKeys(f.indexed) {
		for len(out) <= idx {
			out = append(out, NumbersField{})
		}
		out[idx] = NumbersField{Encoded: f.indexed[idx]}
	}
	for idx, entry := range f.nested {
		for len(out) <= idx {
			out = append(out, NumbersField{})
		}
		out[idx] = NumbersField{Sequence: entry.values(), Structured: true}
	}
	return out
}

func jsonTexts(v gjson.Result) []string {
	if !v.Exists() || v.Type == gjson.Null {
		return []string{}
	}
	if !v.IsArray() {
		return []string{v.String()}
	}
	elems := v.Array()
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, e.String())
	}
	return out
}

func jsonNumbers(v gjson.Result) []NumbersField {
	if !v.Exists() || v.Type == gjson.Null {
		return []NumbersField{}
	}
	if !v.IsArray() {
		return []NumbersField{{Encoded: v.String()}}
	}
	elems := v.Array()
	out := make([]NumbersField, 0, len(elems))
	for _, e := range elems {
		if e.IsArray() {
			out = append(out, NumbersField{Sequence: jsonTexts(e), Structured: true})
			continue
		}
		out = append(out, NumbersField{Encoded: e.String()})
	}
	return out
}

func grow(s []string, n int) []string {
	for len(s) < n {
		s = append(s, "")
	}
	return s
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
