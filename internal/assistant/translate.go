package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/cv-builder/internal/document"
	"github.com/jonathan/cv-builder/internal/llm"
	"github.com/jonathan/cv-builder/internal/types"
)

// Translation carries the free-text fields of a document. Entries are keyed
// by ID so translated descriptions can be spliced back in place. Locale is
// the language the text is in.
type Translation struct {
	Locale     types.Locale      `json:"-"`
	About      string            `json:"about"`
	Title      string            `json:"title"`
	Experience []TranslatedEntry `json:"experience"`
	Projects   []TranslatedEntry `json:"projects"`
	Education  []TranslatedEntry `json:"education"`
}

// TranslatedEntry is the description of one entry
type TranslatedEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// TranslationFor extracts the translatable subset of doc.
func TranslationFor(doc types.CVDocument) Translation {
	t := Translation{
		About:      doc.About,
		Title:      doc.Title,
		Experience: make([]TranslatedEntry, 0, len(doc.Experience)),
		Projects:   make([]TranslatedEntry, 0, len(doc.Projects)),
		Education:  make([]TranslatedEntry, 0, len(doc.Education)),
	}
	for _, e := range doc.Experience {
		t.Experience = append(t.Experience, TranslatedEntry{ID: e.ID, Description: e.Description})
	}
	for _, p := range doc.Projects {
		t.Projects = append(t.Projects, TranslatedEntry{ID: p.ID, Description: p.Description})
	}
	for _, e := range doc.Education {
		t.Education = append(t.Education, TranslatedEntry{ID: e.ID, Description: e.Description})
	}
	return t
}

// Translate translates the free-text fields of doc into target. The result
// is applied with ApplyTranslation, usually to the latest version of the
// document rather than doc itself.
func (a *Assistant) Translate(ctx context.Context, doc types.CVDocument, target types.Locale) (Translation, error) {
	const op = "translate"

	if !target.Valid() {
		return Translation{}, &Error{Kind: KindValidation, Op: op, Message: "unsupported target language " + string(target)}
	}
	source := types.LocaleES
	if target == types.LocaleES {
		source = types.LocaleEN
	}

	payload, err := json.Marshal(TranslationFor(doc))
	if err != nil {
		return Translation{}, &Error{Kind: KindValidation, Op: op, Message: "failed to encode document fields", Cause: err}
	}

	out, err := a.generateJSON(ctx, call{
		op:        op,
		systemKey: "translate-system",
		promptKey: "translate-cv",
		data: map[string]string{
			"SourceLanguage": languageName(source),
			"TargetLanguage": languageName(target),
			"Payload":        string(payload),
		},
		tier:        llm.TierLite,
		temperature: 0.3,
		maxTokens:   2000,
	})
	if err != nil {
		return Translation{}, err
	}

	var translated Translation
	if err := json.Unmarshal([]byte(out), &translated); err != nil {
		return Translation{}, &Error{Kind: KindMalformed, Op: op, Message: "failed to decode translation", Cause: err}
	}
	translated.Locale = target
	return translated, nil
}

// ApplyTranslation splices translated text into a copy of doc and switches
// its locale to t.Locale when set. Blank values and unknown IDs are ignored;
// structural fields are never changed.
func ApplyTranslation(doc types.CVDocument, t Translation) types.CVDocument {
	next := document.Clone(doc)
	if t.Locale != "" {
		next.Locale = t.Locale
	}
	setIfPresent(&next.About, t.About)
	setIfPresent(&next.Title, t.Title)

	experience := byID(t.Experience)
	for i := range next.Experience {
		setIfPresent(&next.Experience[i].Description, experience[next.Experience[i].ID])
	}
	projects := byID(t.Projects)
	for i := range next.Projects {
		setIfPresent(&next.Projects[i].Description, projects[next.Projects[i].ID])
	}
	education := byID(t.Education)
	for i := range next.Education {
		setIfPresent(&next.Education[i].Description, education[next.Education[i].ID])
	}
	return next
}

func byID(entries []TranslatedEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if id := strings.TrimSpace(e.ID); id != "" {
			m[id] = e.Description
		}
	}
	return m
}
