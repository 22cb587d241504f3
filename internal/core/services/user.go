package services

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"discord-package-parser/internal/adapters/parser"
	"discord-package-parser/internal/domain"
	"discord-package-parser/internal/ports"
)

// PaymentStatusConfirmed - статус подтвержденного платежа.
const PaymentStatusConfirmed = 1

var minorUnitsPerMajor = decimal.NewFromInt(100)

// UserAggregator загружает профиль владельца выгрузки.
type UserAggregator struct {
	log *slog.Logger
}

// NewUserAggregator создает новый экземпляр UserAggregator.
func NewUserAggregator(logger *slog.Logger) *UserAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserAggregator{log: logger}
}

// Load читает <profileRoot>/user.json.
// Отсутствующий или поврежденный профиль не является ошибкой: возвращается nil.
func (a *UserAggregator) Load(archive ports.Archive, layout Layout) (*domain.Profile, error) {
	path := layout.UserPath()
	content, ok, err := archive.Read(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		a.log.Warn("user profile not found", "path", path)
		return nil, nil
	}

	profile, err := parser.ParseJSON[domain.Profile](content)
	if err != nil {
		a.log.Warn("failed to parse user profile", "error", domain.WithPath(err, path))
		return nil, nil
	}
	return &profile, nil
}

// SummarizePayments считает итоги по подтвержденным платежам.
// Суммы переводятся из минимальных единиц в основные по каждой валюте отдельно,
// список сортируется по created_at по возрастанию.
func SummarizePayments(payments []domain.Payment) domain.PaymentSummary {
	summary := domain.PaymentSummary{Totals: make(map[string]decimal.Decimal)}

	confirmed := make([]domain.Payment, 0, len(payments))
	for _, p := range payments {
		if p.Status == PaymentStatusConfirmed {
			confirmed = append(confirmed, p)
		}
	}
	sort.SliceStable(confirmed, func(i, j int) bool { return confirmed[i].CreatedAt < confirmed[j].CreatedAt })

	lines := make([]string, 0, len(confirmed))
	for _, p := range confirmed {
		amount := decimal.NewFromInt(p.Amount).Div(minorUnitsPerMajor)
		summary.Totals[p.Currency] = summary.Totals[p.Currency].Add(amount)
		lines = append(lines, fmt.Sprintf("%s (%s %s)", p.Description, strings.ToUpper(p.Currency), amount.StringFixed(2)))
	}
	summary.List = strings.Join(lines, domain.PaymentListSeparator)
	return summary
}
