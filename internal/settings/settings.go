// Package settings holds company info, posting policy, and print
// settings. Each group is its own top-level section of the data file.
package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/daftar-erp/daftar/internal/shared"
	"github.com/daftar-erp/daftar/internal/store"
)

// CompanyInfo identifies the business on printed documents.
type CompanyInfo struct {
	Name     string `json:"name"`
	TaxID    string `json:"taxId,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`
	Currency string `json:"currency"`
}

// GeneralSettings carries posting policy switches.
type GeneralSettings struct {
	AllowNegativeStock bool   `json:"allowNegativeStock"`
	DateFormat         string `json:"dateFormat,omitempty"`
}

// PrintSettings controls invoice printouts.
type PrintSettings struct {
	PaperSize  string `json:"paperSize"`
	ShowLogo   bool   `json:"showLogo"`
	FooterText string `json:"footerText,omitempty"`
}

// Repository holds the three settings groups.
type Repository struct {
	company CompanyInfo
	general GeneralSettings
	print   PrintSettings
}

// NewRepository returns settings with sane defaults.
func NewRepository() *Repository {
	return &Repository{
		company: CompanyInfo{Currency: "EGP"},
		general: GeneralSettings{AllowNegativeStock: false},
		print:   PrintSettings{PaperSize: "A4", ShowLogo: true},
	}
}

// AllowNegativeStock reports the stock policy without taking the store
// lock. It satisfies the SettingsPort of the document modules, whose
// services call it inside store.Apply while already holding the write
// lock; the field is only written under that same lock.
func (r *Repository) AllowNegativeStock() bool {
	return r.general.AllowNegativeStock
}

type companySection struct{ repo *Repository }

func (s companySection) Name() string { return "companyInfo" }

func (s companySection) Snapshot() (json.RawMessage, error) { return json.Marshal(s.repo.company) }

func (s companySection) Restore(raw json.RawMessage) error {
	var info CompanyInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return err
	}
	s.repo.company = info
	return nil
}

type generalSection struct{ repo *Repository }

func (s generalSection) Name() string { return "generalSettings" }

func (s generalSection) Snapshot() (json.RawMessage, error) { return json.Marshal(s.repo.general) }

func (s generalSection) Restore(raw json.RawMessage) error {
	var general GeneralSettings
	if err := json.Unmarshal(raw, &general); err != nil {
		return err
	}
	s.repo.general = general
	return nil
}

type printSection struct{ repo *Repository }

func (s printSection) Name() string { return "printSettings" }

func (s printSection) Snapshot() (json.RawMessage, error) { return json.Marshal(s.repo.print) }

func (s printSection) Restore(raw json.RawMessage) error {
	var ps PrintSettings
	if err := json.Unmarshal(raw, &ps); err != nil {
		return err
	}
	s.repo.print = ps
	return nil
}

// CompanySection exposes company info for persistence.
func (r *Repository) CompanySection() store.Section { return companySection{repo: r} }

// GeneralSection exposes general settings for persistence.
func (r *Repository) GeneralSection() store.Section { return generalSection{repo: r} }

// PrintSection exposes print settings for persistence.
func (r *Repository) PrintSection() store.Section { return printSection{repo: r} }

// AuditPort records settings changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service reads and writes settings through the store.
type Service struct {
	store *store.Store
	repo  *Repository
	audit AuditPort
	now   func() time.Time
}

// NewService wires the settings service.
func NewService(st *store.Store, repo *Repository, audit AuditPort) *Service {
	return &Service{store: st, repo: repo, audit: audit, now: time.Now}
}

// AllowNegativeStock reports the current stock policy under the read
// lock. Callers already inside store.Apply must use the repository
// accessor instead; this one would deadlock there.
func (s *Service) AllowNegativeStock() bool {
	var allow bool
	s.store.View(func() { allow = s.repo.general.AllowNegativeStock })
	return allow
}

// Company returns the company info.
func (s *Service) Company(ctx context.Context) CompanyInfo {
	var out CompanyInfo
	s.store.View(func() { out = s.repo.company })
	return out
}

// General returns the general settings.
func (s *Service) General(ctx context.Context) GeneralSettings {
	var out GeneralSettings
	s.store.View(func() { out = s.repo.general })
	return out
}

// Print returns the print settings.
func (s *Service) Print(ctx context.Context) PrintSettings {
	var out PrintSettings
	s.store.View(func() { out = s.repo.print })
	return out
}

// UpdateCompany replaces the company info.
func (s *Service) UpdateCompany(ctx context.Context, info CompanyInfo) error {
	err := s.store.Apply(func() error {
		s.repo.company = info
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, "settings.company.update")
	return nil
}

// UpdateGeneral replaces the general settings.
func (s *Service) UpdateGeneral(ctx context.Context, general GeneralSettings) error {
	err := s.store.Apply(func() error {
		s.repo.general = general
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, "settings.general.update")
	return nil
}

// UpdatePrint replaces the print settings.
func (s *Service) UpdatePrint(ctx context.Context, print PrintSettings) error {
	err := s.store.Apply(func() error {
		s.repo.print = print
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, "settings.print.update")
	return nil
}

func (s *Service) record(ctx context.Context, action string) {
	if s.audit == nil {
		return
	}
	actor := ""
	if sess := shared.SessionFromContext(ctx); sess != nil {
		actor = sess.User()
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "settings",
		EntityID: "settings",
		At:       s.now().UTC(),
	})
}
