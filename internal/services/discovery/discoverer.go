package discovery

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"document-reconciliation-backend/internal/config"
	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/repository"
)

// Discoverer builds the catalog of account codes actually present in
// extracted documents.
type Discoverer struct {
	lineItems *repository.LineItemRepository
	discovery *repository.DiscoveryRepository
}

func NewDiscoverer(lineItems *repository.LineItemRepository, discovery *repository.DiscoveryRepository) *Discoverer {
	return &Discoverer{lineItems: lineItems, discovery: discovery}
}

// Discover scans the line items for a (property, period), aggregates
// occurrence counts, enriches each account with its corpus-wide property and
// period spread, and upserts the catalog rows. Identical inputs yield
// identical counts.
func (d *Discoverer) Discover(propertyID uuid.UUID, periodID string, documentType *models.DocumentType) ([]models.DiscoveredAccountCode, error) {
	items, err := d.lineItems.ByScope(propertyID, periodID, documentType)
	if err != nil {
		return nil, err
	}

	rows := Aggregate(items)
	for i := range rows {
		counts, err := d.lineItems.ScopeCounts(rows[i].DocumentType, rows[i].AccountCode, rows[i].AccountName)
		if err != nil {
			return nil, err
		}
		rows[i].PropertyCount = counts.PropertyCount
		rows[i].PeriodCount = counts.PeriodCount
	}

	if err := d.discovery.Upsert(rows); err != nil {
		return nil, err
	}

	config.GetLogger().WithFields(logrus.Fields{
		"property_id": propertyID,
		"period_id":   periodID,
		"accounts":    len(rows),
		"line_items":  len(items),
	}).Info("account discovery completed")

	return rows, nil
}

// Aggregate groups line items by (document_type, account_code, account_name)
// and counts occurrences. Pure; the discoverer adds corpus counts afterward.
func Aggregate(items []models.LineItem) []models.DiscoveredAccountCode {
	type key struct {
		doc  models.DocumentType
		code string
		name string
	}
	counts := make(map[key]int)
	for _, item := range items {
		counts[key{item.DocumentType, item.AccountCode, item.AccountName}]++
	}

	now := time.Now()
	rows := make([]models.DiscoveredAccountCode, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, models.DiscoveredAccountCode{
			ID:              uuid.New(),
			DocumentType:    k.doc,
			AccountCode:     k.code,
			AccountName:     k.name,
			OccurrenceCount: n,
			FirstSeenAt:     now,
			LastSeenAt:      now,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DocumentType != rows[j].DocumentType {
			return rows[i].DocumentType < rows[j].DocumentType
		}
		if rows[i].AccountCode != rows[j].AccountCode {
			return rows[i].AccountCode < rows[j].AccountCode
		}
		return rows[i].AccountName < rows[j].AccountName
	})
	return rows
}
