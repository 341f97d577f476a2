package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/certolo/certolo-backend/config"
	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// Imports a certification catalog from an XLSX workbook. The workbook
// needs a "Standards" sheet and an optional "Criteria" sheet that refers
// to standards by code.
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path> <certifier_email>")
	}

	filePath := os.Args[1]
	certifierEmail := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	userRepo := repository.NewUserRepository(db.GetDB())
	certifier, err := userRepo.FindByEmail(certifierEmail)
	if err != nil {
		log.Fatalf("Certifier account %s not found: %v", certifierEmail, err)
	}
	if certifier.Role != model.RoleCertifier {
		log.Fatalf("Account %s is not a certifier", certifierEmail)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	standards, criteriaByCode, err := readCatalogFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	totalCriteria := 0
	for _, criteria := range criteriaByCode {
		totalCriteria += len(criteria)
	}
	fmt.Printf("Standards to import: %d (with %d criteria), owned by %s\n",
		len(standards), totalCriteria, certifier.Email)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	standardRepo := repository.NewStandardRepository(db.GetDB())
	imported := 0
	for i := range standards {
		standard := &standards[i]
		standard.CertifierID = certifier.ID
		if err := standardRepo.Create(standard); err != nil {
			log.Fatalf("Failed to create standard %s: %v", standard.Name, err)
		}
		for _, criterion := range criteriaByCode[standard.Code] {
			criterion.StandardID = standard.ID
			if err := standardRepo.CreateCriterion(&criterion); err != nil {
				log.Fatalf("Failed to create criterion %s: %v", criterion.Name, err)
			}
		}
		imported++
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total standards imported: %d\n", imported)
}

func readCatalogFromXLSX(filePath string) ([]model.Standard, map[string][]model.Criterion, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	standards, err := readStandards(f)
	if err != nil {
		return nil, nil, err
	}

	criteriaByCode, err := readCriteria(f)
	if err != nil {
		return nil, nil, err
	}

	return standards, criteriaByCode, nil
}

// Standards sheet columns:
// Name | Code | Type | Description | Requirements | ValidityMonths | Price
func readStandards(f *excelize.File) ([]model.Standard, error) {
	rows, err := f.GetRows("Standards")
	if err != nil {
		return nil, fmt.Errorf("failed to read Standards sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("Standards sheet has no data rows")
	}

	var standards []model.Standard
	for i, row := range rows[1:] {
		name := cell(row, 0)
		if name == "" {
			continue
		}

		validityMonths := 12
		if v := cell(row, 5); v != "" {
			validityMonths, err = strconv.Atoi(v)
			if err != nil || validityMonths < 1 {
				return nil, fmt.Errorf("row %d: invalid validity months %q", i+2, v)
			}
		}

		var price float64
		if v := cell(row, 6); v != "" {
			price, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid price %q", i+2, v)
			}
		}

		standards = append(standards, model.Standard{
			Name:           name,
			Code:           cell(row, 1),
			Type:           cell(row, 2),
			Description:    cell(row, 3),
			Requirements:   cell(row, 4),
			ValidityMonths: validityMonths,
			Price:          price,
			Status:         model.StandardActive,
		})
	}

	return standards, nil
}

// Criteria sheet columns:
// StandardCode | Name | Description | Requirements | Aspect | RiskAssessment | SortOrder
func readCriteria(f *excelize.File) (map[string][]model.Criterion, error) {
	rows, err := f.GetRows("Criteria")
	if err != nil {
		// The sheet is optional; a catalog may carry standards only.
		return map[string][]model.Criterion{}, nil
	}

	criteriaByCode := make(map[string][]model.Criterion)
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		code := cell(row, 0)
		name := cell(row, 1)
		if code == "" || name == "" {
			continue
		}

		sortOrder := len(criteriaByCode[code]) + 1
		if v := cell(row, 6); v != "" {
			sortOrder, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid sort order %q", i+1, v)
			}
		}

		risk := strings.EqualFold(cell(row, 5), "yes") || cell(row, 5) == "1"

		criteriaByCode[code] = append(criteriaByCode[code], model.Criterion{
			Name:                   name,
			Description:            cell(row, 2),
			Requirements:           cell(row, 3),
			Aspect:                 cell(row, 4),
			RiskAssessmentRequired: risk,
			SortOrder:              sortOrder,
			Status:                 model.CriterionActive,
		})
	}

	return criteriaByCode, nil
}

func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}
