package usecase

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/programbi/crm-leads/internal/entity"
)

var freeMailDomains = map[string]bool{
	"gmail.com":   true,
	"hotmail.com": true,
	"outlook.com": true,
	"yahoo.com":   true,
	"icloud.com":  true,
	"live.com":    true,
}

var csvHeader = []string{"Fecha", "Nombre", "Email", "Telefono", "Curso", "Mensaje", "Estado", "Es Empresa"}

type KPIs struct {
	Total      int                       `json:"total"`
	Pending    int                       `json:"pendiente"`
	InProgress int                       `json:"seguimiento"`
	Contacted  int                       `json:"contactado"`
	Trashed    int                       `json:"trashed"`
	Sync       map[entity.SyncStatus]int `json:"sync"`
}

type TrendPoint struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type ScoredLead struct {
	entity.Lead
	Score     int  `json:"score"`
	Corporate bool `json:"corporate"`
}

type DashboardUseCase struct {
	Store    entity.LeadRepositoryInterface
	Now      func() time.Time
	Location *time.Location
}

func NewDashboardUseCase(store entity.LeadRepositoryInterface, loc *time.Location) *DashboardUseCase {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardUseCase{Store: store, Now: time.Now, Location: loc}
}

func (uc *DashboardUseCase) KPIs(ctx context.Context) (*KPIs, error) {
	leads, err := uc.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	k := ComputeKPIs(leads)
	return &k, nil
}

func (uc *DashboardUseCase) Trend(ctx context.Context) ([]TrendPoint, error) {
	leads, err := uc.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	return WeeklyTrend(leads, uc.Now().In(uc.Location)), nil
}

func (uc *DashboardUseCase) ExportCSV(ctx context.Context, w io.Writer, filter LeadFilter) error {
	leads, err := uc.Store.List(ctx)
	if err != nil {
		return err
	}
	if filter.Now.IsZero() {
		filter.Now = uc.Now()
	}
	return WriteCSV(w, FilterLeads(leads, filter), uc.Location)
}

// Scored devolve os leads filtrados com a pontuação do painel.
func (uc *DashboardUseCase) Scored(ctx context.Context, filter LeadFilter) ([]ScoredLead, error) {
	leads, err := uc.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Now.IsZero() {
		filter.Now = uc.Now()
	}
	filtered := FilterLeads(leads, filter)
	out := make([]ScoredLead, 0, len(filtered))
	for _, l := range filtered {
		out = append(out, ScoredLead{Lead: l, Score: LeadScore(l), Corporate: IsCorporateEmail(l.Email)})
	}
	return out, nil
}

// ComputeKPIs conta só leads fora da lixeira, exceto o próprio contador Trashed.
func ComputeKPIs(leads []entity.Lead) KPIs {
	k := KPIs{Sync: map[entity.SyncStatus]int{}}
	for _, l := range leads {
		if l.IsTrashed() {
			k.Trashed++
			continue
		}
		k.Total++
		switch l.Status {
		case entity.StatusPending:
			k.Pending++
		case entity.StatusInProgress:
			k.InProgress++
		case entity.StatusContacted:
			k.Contacted++
		}
		status := l.Sync.Status
		if status == entity.SyncAbsent {
			status = entity.SyncPending
		}
		k.Sync[status]++
	}
	return k
}

func IsCorporateEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	return !freeMailDomains[strings.ToLower(strings.TrimSpace(email[at+1:]))]
}

// LeadScore vai de 1 a 5.
func LeadScore(l entity.Lead) int {
	score := 1
	if strings.TrimSpace(l.Phone) != "" {
		score++
	}
	if len([]rune(l.Message)) > 10 {
		score++
	}
	if IsCorporateEmail(l.Email) {
		score += 2
	}
	if score > 5 {
		score = 5
	}
	return score
}

// WeeklyTrend conta leads por dia nos últimos sete dias, do mais antigo para hoje.
func WeeklyTrend(leads []entity.Lead, now time.Time) []TrendPoint {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	points := make([]TrendPoint, 7)
	for i := range points {
		points[i].Day = today.AddDate(0, 0, i-6).Format("2006-01-02")
	}

	start := today.AddDate(0, 0, -6)
	for _, l := range leads {
		if l.CreatedAt.IsZero() {
			continue
		}
		d := l.CreatedAt.In(loc)
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		if day.Before(start) || day.After(today) {
			continue
		}
		idx := int(day.Sub(start).Hours()/24 + 0.5)
		if idx >= 0 && idx < len(points) {
			points[idx].Count++
		}
	}
	return points
}

func WriteCSV(w io.Writer, leads []entity.Lead, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range leads {
		corporate := "No"
		if IsCorporateEmail(l.Email) {
			corporate = "Si"
		}
		fecha := ""
		if !l.CreatedAt.IsZero() {
			fecha = l.CreatedAt.In(loc).Format("2006-01-02 15:04")
		}
		record := []string{
			fecha,
			l.Name,
			l.Email,
			l.Phone,
			strings.Join(l.Interests, ", "),
			l.Message,
			string(l.Status),
			corporate,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
