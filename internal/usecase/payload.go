package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/programbi/crm-leads/internal/entity"
	"github.com/programbi/crm-leads/internal/infra/integration/relay"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	TagLeadWeb   = "lead-web"
	TagCRMSync   = "crm-sync"
	courseTagPfx = "curso-"
)

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify: "SQL Avanzado!" -> "sql-avanzado", "Programación" -> "programacion".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	slug := nonAlnumRun.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}

// BuildTags devolve as tags fixas seguidas de uma tag curso-<slug> por interesse, sem repetição.
func BuildTags(interests []string) []string {
	tags := []string{TagLeadWeb, TagCRMSync}
	seen := map[string]bool{TagLeadWeb: true, TagCRMSync: true}

	interests = nonEmpty(interests)
	if len(interests) == 0 {
		interests = []string{"General"}
	}
	for _, interest := range interests {
		slug := Slugify(interest)
		if slug == "" {
			continue
		}
		tag := courseTagPfx + slug
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func BuildNote(lead entity.Lead) string {
	var lines []string
	if c := strings.TrimSpace(lead.Company); c != "" {
		lines = append(lines, "Empresa: "+c)
	}
	if interests := nonEmpty(lead.Interests); len(interests) > 0 {
		lines = append(lines, "Intereses: "+strings.Join(interests, ", "))
	}
	if m := strings.TrimSpace(lead.Message); m != "" {
		lines = append(lines, "Mensaje: "+m)
	}
	origin := strings.TrimSpace(lead.Origin)
	if origin == "" {
		origin = "Web"
	}
	lines = append(lines, "Origen: "+origin)
	return strings.Join(lines, "\n")
}

func BuildPayload(lead entity.Lead) relay.CustomerPayload {
	return relay.CustomerPayload{
		Name:  strings.TrimSpace(lead.Name),
		Email: strings.ToLower(strings.TrimSpace(lead.Email)),
		Phone: strings.TrimSpace(lead.Phone),
		Tags:  BuildTags(lead.Interests),
		Note:  BuildNote(lead),
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
