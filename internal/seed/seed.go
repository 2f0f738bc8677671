// Package seed loads tenant reference data from the CSV files shipped in seeds/.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rpggio/benefits-portal/internal/domain/tenant"
	"golang.org/x/crypto/bcrypt"
)

// Seed file names inside a seed directory.
const (
	CompaniesFile = "companies.csv"
	PlansFile     = "plans.csv"
	MembersFile   = "members.csv"
)

// ErrMissingColumn is returned when a seed file lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Stats counts the rows written by a load.
type Stats struct {
	Companies int
	Plans     int
	Members   int
}

// Loader writes seed files through a tenant.Writer.
type Loader struct {
	writer   tenant.Writer
	password string
	cost     int
	logger   *slog.Logger
}

// New creates a loader. Every member gets password as their login secret.
func New(writer tenant.Writer, password string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		writer:   writer,
		password: password,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
}

// SetCost overrides the bcrypt cost.
func (l *Loader) SetCost(cost int) {
	l.cost = cost
}

// LoadDir loads companies, then plans, then members from dir.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Stats, error) {
	var stats Stats
	if l.password == "" {
		return stats, errors.New("seed password is empty")
	}

	companies, err := readTable(filepath.Join(dir, CompaniesFile), "company_id", "company_name")
	if err != nil {
		return stats, err
	}
	for _, row := range companies {
		c := &tenant.Company{
			ID:         row.get("company_id"),
			Name:       row.get("company_name"),
			Industry:   row.get("industry"),
			BrandColor: row.get("brand_color"),
			LogoURL:    row.get("logo_url"),
		}
		if err := l.writer.UpsertCompany(ctx, c); err != nil {
			return stats, fmt.Errorf("%s line %d: %w", CompaniesFile, row.line, err)
		}
		stats.Companies++
	}

	plans, err := readTable(filepath.Join(dir, PlansFile), "plan_id", "plan_type")
	if err != nil {
		return stats, err
	}
	for _, row := range plans {
		p := &tenant.Plan{ID: row.get("plan_id"), PlanType: row.get("plan_type")}
		if p.Deductible, err = row.float("annual_deductible_individual"); err != nil {
			return stats, err
		}
		if p.OOPMax, err = row.float("oop_max_individual"); err != nil {
			return stats, err
		}
		if p.MonthlyPremium, err = row.float("premium_monthly_employee"); err != nil {
			return stats, err
		}
		if err := l.writer.UpsertPlan(ctx, p); err != nil {
			return stats, fmt.Errorf("%s line %d: %w", PlansFile, row.line, err)
		}
		stats.Plans++
	}

	members, err := readTable(filepath.Join(dir, MembersFile), "member_id", "company_id", "email")
	if err != nil {
		return stats, err
	}
	for _, row := range members {
		hash, err := bcrypt.GenerateFromPassword([]byte(l.password), l.cost)
		if err != nil {
			return stats, fmt.Errorf("hashing password: %w", err)
		}
		m := &tenant.Member{
			ID:           row.get("member_id"),
			TenantID:     row.get("company_id"),
			Email:        row.get("email"),
			FirstName:    row.get("first_name"),
			LastName:     row.get("last_name"),
			Department:   row.get("department"),
			PlanID:       row.get("plan_id"),
			PasswordHash: string(hash),
		}
		if m.IsPrimary, err = row.bool("is_primary"); err != nil {
			return stats, err
		}
		if err := l.writer.UpsertMember(ctx, m); err != nil {
			return stats, fmt.Errorf("%s line %d: %w", MembersFile, row.line, err)
		}
		stats.Members++
	}

	l.logger.Info("seed data loaded",
		"dir", dir,
		"companies", stats.Companies,
		"plans", stats.Plans,
		"members", stats.Members,
	)
	return stats, nil
}

type record struct {
	file   string
	line   int
	index  map[string]int
	values []string
}

func (r record) get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r record) float(column string) (float64, error) {
	v := r.get(column)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s line %d: invalid %s %q", r.file, r.line, column, v)
	}
	return f, nil
}

func (r record) bool(column string) (bool, error) {
	v := r.get(column)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s line %d: invalid %s %q", r.file, r.line, column, v)
	}
	return b, nil
}

// readTable reads a headed CSV file. Required columns must be present in
// the header and non-empty on every row.
func readTable(path string, required ...string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", name, err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: %w %q", name, ErrMissingColumn, col)
		}
	}

	var rows []record
	for line := 2; ; line++ {
		values, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		row := record{file: name, line: line, index: index, values: values}
		for _, col := range required {
			if row.get(col) == "" {
				return nil, fmt.Errorf("%s line %d: empty %s", name, line, col)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
