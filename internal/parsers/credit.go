package parsers

import "loan-report-dashboard/internal/models"

// ParseCreditRealization parses the credit realization vs commitment sheet
// (44a1): KUMK, KUR and UMKM blocks per entity.
func (p *Parser) ParseCreditRealization(sheet *Sheet) (*models.Report, *ParseStats) {
	return p.parseEntitySheet(sheet, CreditRealizationShape)
}

// ParseCreditPosition parses the credit position sheet (44b): opening
// position, realization, run-off and closing position per entity.
func (p *Parser) ParseCreditPosition(sheet *Sheet) (*models.Report, *ParseStats) {
	return p.parseEntitySheet(sheet, CreditPositionShape)
}
