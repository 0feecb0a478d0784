package usecase

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/programbi/crm-leads/internal/entity"
)

const (
	fallbackTemplateName = "Todos los Cursos"
	defaultCourseText    = "el curso"
	chileCountryCode     = "56"
	defaultWhatsAppText  = "Hola {nombre}, te escribimos por tu interés en {curso}."
)

var (
	ErrNoPhone = errors.New("lead sin teléfono")

	placeholderName   = regexp.MustCompile(`(?i)\{nombre\}`)
	placeholderCourse = regexp.MustCompile(`(?i)\{curso\}`)
)

// FindBestTemplate casa o primeiro interesse com o nome do curso (substring nos dois sentidos).
// Sem casamento, cai no template "Todos los Cursos".
func FindBestTemplate(lead entity.Lead, templates []entity.Template) *entity.Template {
	for _, interest := range lead.Interests {
		clean := strings.ToLower(strings.TrimSpace(interest))
		if clean == "" {
			continue
		}
		for i := range templates {
			name := strings.ToLower(strings.TrimSpace(templates[i].CourseName))
			if name == "" || name == "manual" || name == "todos los cursos" {
				continue
			}
			if strings.Contains(name, clean) || strings.Contains(clean, name) {
				return &templates[i]
			}
		}
	}
	for i := range templates {
		if templates[i].CourseName == fallbackTemplateName {
			return &templates[i]
		}
	}
	return nil
}

func RenderMessage(text string, lead entity.Lead) string {
	course := defaultCourseText
	for _, i := range lead.Interests {
		if t := strings.TrimSpace(i); t != "" {
			course = t
			break
		}
	}
	out := placeholderName.ReplaceAllLiteralString(text, lead.FirstName())
	return placeholderCourse.ReplaceAllLiteralString(out, course)
}

// MailtoLink monta o link com assunto e corpo. Quebras viram CRLF para o Outlook.
func MailtoLink(lead entity.Lead, tpl *entity.Template) string {
	if tpl == nil {
		return "mailto:" + lead.Email
	}

	body := RenderMessage(tpl.Body, lead)
	if tpl.AttachmentLink != "" {
		body += "\n\nTemario: " + tpl.AttachmentLink
	}
	body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n")

	return "mailto:" + lead.Email +
		"?subject=" + escapeComponent(RenderMessage(tpl.Subject, lead)) +
		"&body=" + escapeComponent(body)
}

func WhatsAppLink(phone, text string) (string, error) {
	digits := nonDigits.ReplaceAllString(phone, "")
	if digits == "" {
		return "", ErrNoPhone
	}
	// Celular chileno sem prefixo: 9XXXXXXXX
	if len(digits) == 9 {
		digits = chileCountryCode + digits
	}
	link := "https://wa.me/" + digits
	if text != "" {
		link += "?text=" + escapeComponent(text)
	}
	return link, nil
}

// Espaço vira %20, nunca '+'.
func escapeComponent(s string) string {
	escaped := url.QueryEscape(s)
	return strings.ReplaceAll(escaped, "+", "%20")
}

type ContactLink struct {
	Link     string `json:"link"`
	Preview  string `json:"preview"`
	Template string `json:"template,omitempty"`
}

// ContactUseCase monta os links de contato de um lead com o melhor template.
type ContactUseCase struct {
	Leads     entity.LeadRepositoryInterface
	Templates entity.TemplateRepositoryInterface
}

func NewContactUseCase(leads entity.LeadRepositoryInterface, templates entity.TemplateRepositoryInterface) *ContactUseCase {
	return &ContactUseCase{Leads: leads, Templates: templates}
}

func (uc *ContactUseCase) Email(ctx context.Context, leadID string) (*ContactLink, error) {
	lead, tpl, err := uc.load(ctx, leadID)
	if err != nil {
		return nil, err
	}
	out := &ContactLink{Link: MailtoLink(*lead, tpl)}
	if tpl != nil {
		out.Template = tpl.CourseName
		out.Preview = RenderMessage(tpl.Body, *lead)
		if tpl.AttachmentLink != "" {
			out.Preview += "\n\nTemario: " + tpl.AttachmentLink
		}
	}
	return out, nil
}

func (uc *ContactUseCase) WhatsApp(ctx context.Context, leadID string) (*ContactLink, error) {
	lead, tpl, err := uc.load(ctx, leadID)
	if err != nil {
		return nil, err
	}

	text := RenderMessage(defaultWhatsAppText, *lead)
	out := &ContactLink{}
	if tpl != nil {
		text = RenderMessage(tpl.Body, *lead)
		out.Template = tpl.CourseName
	}

	link, err := WhatsAppLink(lead.Phone, text)
	if err != nil {
		return nil, &DomainError{Code: CodeNoPhone, Message: "el lead no tiene teléfono"}
	}
	out.Link = link
	out.Preview = text
	return out, nil
}

func (uc *ContactUseCase) load(ctx context.Context, leadID string) (*entity.Lead, *entity.Template, error) {
	lead, err := uc.Leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, nil, mapLeadError(err)
	}
	templates, err := uc.Templates.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return lead, FindBestTemplate(*lead, templates), nil
}
