// Package settings persists the tax configuration as key/value rows and
// hands it out as an immutable, versioned tax.Config snapshot.
package settings

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/cache"
	"go-pos-books/internal/config"
	"go-pos-books/internal/database"
	"go-pos-books/internal/models"
	"go-pos-books/internal/tax"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	keyVersion         = "config_version"
	keyTaxRate         = "tax_rate"
	keyVATRate         = "vat_rate"
	keyPAYERate        = "paye_rate"
	keyPAYEBands       = "paye_brackets_json"
	keyWHTIndividual   = "wht_individual_rate"
	keyWHTCompany      = "wht_company_rate"
	keyCITSmallMax     = "cit_small_turnover_max"
	keyCITMediumMax    = "cit_medium_turnover_max"
	keyCITSmallRate    = "cit_small_rate"
	keyCITMediumRate   = "cit_medium_rate"
	keyCITLargeRate    = "cit_large_rate"
	keyReminderDays    = "tax_reminder_days_before"
	keyVATDueDay       = "monthly_vat_due_day"
	keyPAYEDueDay      = "monthly_paye_due_day"
	keyWHTDueDay       = "monthly_wht_due_day"
	keyAnnualReturnMon = "annual_tax_return_month"
	keyAnnualReturnDay = "annual_tax_return_day"
	keyCITFYEndMonth   = "cit_fy_end_month"
	keyCITFYEndDay     = "cit_fy_end_day"

	cacheKey = "settings:tax"
	cacheTTL = 10 * time.Minute
)

type Store struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger *logrus.Logger
}

func NewStore(db *gorm.DB, c *cache.Cache, logger *logrus.Logger) *Store {
	return &Store{db: db, cache: c, logger: logger}
}

// Load returns the current snapshot. Missing keys take their defaults; a
// stored VAT rate outside (0, 15] and unparsable PAYE bands are replaced
// by the defaults.
func (s *Store) Load(ctx context.Context) (tax.Config, error) {
	var cfg tax.Config
	if found, err := s.cache.GetObject(ctx, cacheKey, &cfg); err != nil {
		config.LogError(s.logger, "settings", "Load", "cache read failed", cacheKey, err)
	} else if found {
		return cfg, nil
	}

	var rows []models.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return tax.Config{}, apperr.Internal("Failed to load settings", err)
	}
	cfg = FromRows(rows)

	if err := s.cache.SetObject(ctx, cacheKey, cfg, cacheTTL); err != nil {
		config.LogError(s.logger, "settings", "Load", "cache write failed", cacheKey, err)
	}
	return cfg, nil
}

// FromRows overlays stored values on the defaults.
func FromRows(rows []models.Setting) tax.Config {
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = strings.TrimSpace(r.Value)
	}

	cfg := tax.DefaultConfig()
	num := func(key string, dst *decimal.Decimal) {
		if v, err := decimal.NewFromString(values[key]); err == nil {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, err := strconv.Atoi(values[key]); err == nil {
			*dst = v
		}
	}

	if v, err := strconv.ParseInt(values[keyVersion], 10, 64); err == nil {
		cfg.Version = v
	}
	num(keyTaxRate, &cfg.VATRate)
	num(keyVATRate, &cfg.VATRate)
	cfg.VATRate = tax.SanitizeVATRate(cfg.VATRate)

	num(keyPAYERate, &cfg.PAYERate)
	if raw := values[keyPAYEBands]; raw != "" {
		if bands, err := tax.ParseBands(raw); err == nil {
			cfg.PAYEBands = bands
		}
	}
	num(keyWHTIndividual, &cfg.WHTIndividualRate)
	num(keyWHTCompany, &cfg.WHTCompanyRate)
	num(keyCITSmallMax, &cfg.CITSmallTurnoverMax)
	num(keyCITMediumMax, &cfg.CITMediumTurnoverMax)
	num(keyCITSmallRate, &cfg.CITSmallRate)
	num(keyCITMediumRate, &cfg.CITMediumRate)
	num(keyCITLargeRate, &cfg.CITLargeRate)
	integer(keyReminderDays, &cfg.ReminderDaysBefore)
	integer(keyVATDueDay, &cfg.VATDueDay)
	integer(keyPAYEDueDay, &cfg.PAYEDueDay)
	integer(keyWHTDueDay, &cfg.WHTDueDay)
	integer(keyAnnualReturnMon, &cfg.AnnualReturnMonth)
	integer(keyAnnualReturnDay, &cfg.AnnualReturnDay)
	integer(keyCITFYEndMonth, &cfg.CITFYEndMonth)
	integer(keyCITFYEndDay, &cfg.CITFYEndDay)
	return cfg
}

// Update applies every well-formed field of in on top of the current
// snapshot and bumps the version. Absent or malformed fields keep their
// previous value; only the VAT rate is reset (to the default) when it is
// well-formed but out of range.
func (s *Store) Update(ctx context.Context, in UpdateRequest) (tax.Config, error) {
	var next tax.Config
	err := database.InTx(ctx, s.db, func(tx *gorm.DB) error {
		// Read under the write lock; concurrent updates serialize on the version.
		var current []models.Setting
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Find(&current).Error; err != nil {
			return err
		}
		prev := FromRows(current)
		next = in.ApplyTo(prev)
		next.Version = prev.Version + 1

		rows := ToRows(next)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return tax.Config{}, apperr.Internal("Failed to save settings", err)
	}

	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		config.LogError(s.logger, "settings", "Update", "cache invalidation failed", cacheKey, err)
	}
	return next, nil
}

func ToRows(cfg tax.Config) []models.Setting {
	str := func(d decimal.Decimal) string { return d.String() }
	itoa := strconv.Itoa
	kv := [][2]string{
		{keyVersion, strconv.FormatInt(cfg.Version, 10)},
		{keyTaxRate, str(cfg.VATRate)},
		{keyVATRate, str(cfg.VATRate)},
		{keyPAYERate, str(cfg.PAYERate)},
		{keyPAYEBands, tax.BandsJSON(cfg.PAYEBands)},
		{keyWHTIndividual, str(cfg.WHTIndividualRate)},
		{keyWHTCompany, str(cfg.WHTCompanyRate)},
		{keyCITSmallMax, str(cfg.CITSmallTurnoverMax)},
		{keyCITMediumMax, str(cfg.CITMediumTurnoverMax)},
		{keyCITSmallRate, str(cfg.CITSmallRate)},
		{keyCITMediumRate, str(cfg.CITMediumRate)},
		{keyCITLargeRate, str(cfg.CITLargeRate)},
		{keyReminderDays, itoa(cfg.ReminderDaysBefore)},
		{keyVATDueDay, itoa(cfg.VATDueDay)},
		{keyPAYEDueDay, itoa(cfg.PAYEDueDay)},
		{keyWHTDueDay, itoa(cfg.WHTDueDay)},
		{keyAnnualReturnMon, itoa(cfg.AnnualReturnMonth)},
		{keyAnnualReturnDay, itoa(cfg.AnnualReturnDay)},
		{keyCITFYEndMonth, itoa(cfg.CITFYEndMonth)},
		{keyCITFYEndDay, itoa(cfg.CITFYEndDay)},
	}

	now := time.Now().UTC()
	rows := make([]models.Setting, 0, len(kv))
	for _, pair := range kv {
		rows = append(rows, models.Setting{Key: pair[0], Value: pair[1], UpdatedAt: now})
	}
	return rows
}

// View is the flat shape the settings screen reads and posts back.
type View struct {
	Version              int64           `json:"version"`
	TaxRate              decimal.Decimal `json:"tax_rate"`
	VATRate              decimal.Decimal `json:"vat_rate"`
	PAYERate             decimal.Decimal `json:"paye_rate"`
	PAYEBracketsJSON     string          `json:"paye_brackets_json"`
	WHTIndividualRate    decimal.Decimal `json:"wht_individual_rate"`
	WHTCompanyRate       decimal.Decimal `json:"wht_company_rate"`
	CITSmallTurnoverMax  decimal.Decimal `json:"cit_small_turnover_max"`
	CITMediumTurnoverMax decimal.Decimal `json:"cit_medium_turnover_max"`
	CITSmallRate         decimal.Decimal `json:"cit_small_rate"`
	CITMediumRate        decimal.Decimal `json:"cit_medium_rate"`
	CITLargeRate         decimal.Decimal `json:"cit_large_rate"`
	ReminderDaysBefore   int             `json:"tax_reminder_days_before"`
	VATDueDay            int             `json:"monthly_vat_due_day"`
	PAYEDueDay           int             `json:"monthly_paye_due_day"`
	WHTDueDay            int             `json:"monthly_wht_due_day"`
	AnnualReturnMonth    int             `json:"annual_tax_return_month"`
	AnnualReturnDay      int             `json:"annual_tax_return_day"`
	CITFYEndMonth        int             `json:"cit_fy_end_month"`
	CITFYEndDay          int             `json:"cit_fy_end_day"`
}

func ToView(cfg tax.Config) View {
	return View{
		Version:              cfg.Version,
		TaxRate:              cfg.VATRate,
		VATRate:              cfg.VATRate,
		PAYERate:             cfg.PAYERate,
		PAYEBracketsJSON:     tax.BandsJSON(cfg.PAYEBands),
		WHTIndividualRate:    cfg.WHTIndividualRate,
		WHTCompanyRate:       cfg.WHTCompanyRate,
		CITSmallTurnoverMax:  cfg.CITSmallTurnoverMax,
		CITMediumTurnoverMax: cfg.CITMediumTurnoverMax,
		CITSmallRate:         cfg.CITSmallRate,
		CITMediumRate:        cfg.CITMediumRate,
		CITLargeRate:         cfg.CITLargeRate,
		ReminderDaysBefore:   cfg.ReminderDaysBefore,
		VATDueDay:            cfg.VATDueDay,
		PAYEDueDay:           cfg.PAYEDueDay,
		WHTDueDay:            cfg.WHTDueDay,
		AnnualReturnMonth:    cfg.AnnualReturnMonth,
		AnnualReturnDay:      cfg.AnnualReturnDay,
		CITFYEndMonth:        cfg.CITFYEndMonth,
		CITFYEndDay:          cfg.CITFYEndDay,
	}
}
