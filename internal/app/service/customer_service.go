package service

import (
	"fmt"
	"time"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/policy"
	"github.com/certolo/certolo-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Customer is the certifier's view of one applicant: current profile
// data plus how much business they have done together.
type Customer struct {
	ApplicantID       uint      `json:"applicant_id"`
	CompanyName       string    `json:"company_name"`
	ContactPerson     string    `json:"contact_person"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	City              string    `json:"city"`
	Country           string    `json:"country"`
	ApplicationCount  int64     `json:"application_count"`
	CertificateCount  int64     `json:"certificate_count"`
	LastApplicationAt time.Time `json:"last_application_at"`
}

type CustomerService interface {
	List(p policy.Principal, search string, limit, offset int) ([]Customer, int64, error)
	Export(p policy.Principal) (*excelize.File, error)
}

type customerService struct {
	db *gorm.DB
}

func NewCustomerService(db *gorm.DB) CustomerService {
	return &customerService{db: db}
}

func (s *customerService) customerQuery(certifierID uint, search string) *gorm.DB {
	query := s.db.Table("applications").
		Select(`applications.applicant_id AS applicant_id,
			users.company_name AS company_name,
			users.contact_person AS contact_person,
			users.email AS email,
			users.phone AS phone,
			users.city AS city,
			users.country AS country,
			COUNT(applications.id) AS application_count,
			MAX(applications.created_at) AS last_application_at`).
		Joins("JOIN users ON users.id = applications.applicant_id").
		Where("applications.certifier_id = ?", certifierID).
		Where("applications.deleted_at IS NULL").
		Group("applications.applicant_id, users.company_name, users.contact_person, users.email, users.phone, users.city, users.country")

	if search != "" {
		like := fmt.Sprintf("%%%s%%", search)
		query = query.Where("users.company_name LIKE ? OR users.email LIKE ?", like, like)
	}
	return query
}

func (s *customerService) List(p policy.Principal, search string, limit, offset int) ([]Customer, int64, error) {
	if !policy.Authorize(p, policy.ActionList, policy.ResourceCustomer).Allowed() {
		return nil, 0, ErrForbidden
	}

	countQuery := s.db.Table("(?) AS customers", s.customerQuery(p.UserID, search))
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		logger.Error("Failed to count customers", err, map[string]interface{}{
			"certifier_id": p.UserID,
		})
		return nil, 0, err
	}

	query := s.customerQuery(p.UserID, search).
		Order("last_application_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var customers []Customer
	if err := query.Scan(&customers).Error; err != nil {
		logger.Error("Failed to list customers", err, map[string]interface{}{
			"certifier_id": p.UserID,
		})
		return nil, 0, err
	}

	if err := s.fillCertificateCounts(p.UserID, customers); err != nil {
		return nil, 0, err
	}

	logger.Debug("Customers listed", map[string]interface{}{
		"certifier_id": p.UserID,
		"count":        len(customers),
	})
	return customers, total, nil
}

func (s *customerService) fillCertificateCounts(certifierID uint, customers []Customer) error {
	if len(customers) == 0 {
		return nil
	}

	type certCount struct {
		ApplicantID uint
		Count       int64
	}

	var counts []certCount
	err := s.db.Model(&model.Certificate{}).
		Select("applicant_id, COUNT(*) AS count").
		Where("certifier_id = ?", certifierID).
		Group("applicant_id").
		Scan(&counts).Error
	if err != nil {
		logger.Error("Failed to count certificates per customer", err, map[string]interface{}{
			"certifier_id": certifierID,
		})
		return err
	}

	byApplicant := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byApplicant[c.ApplicantID] = c.Count
	}
	for i := range customers {
		customers[i].CertificateCount = byApplicant[customers[i].ApplicantID]
	}
	return nil
}

// Export renders the certifier's full customer list as an xlsx workbook.
func (s *customerService) Export(p policy.Principal) (*excelize.File, error) {
	if !policy.Authorize(p, policy.ActionExport, policy.ResourceCustomer).Allowed() {
		return nil, ErrForbidden
	}

	var customers []Customer
	if err := s.customerQuery(p.UserID, "").
		Order("last_application_at DESC").
		Scan(&customers).Error; err != nil {
		return nil, err
	}
	if err := s.fillCertificateCounts(p.UserID, customers); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Customers"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{
		"Company", "Contact Person", "Email", "Phone", "City", "Country",
		"Applications", "Certificates", "Last Application",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, customer := range customers {
		values := []interface{}{
			customer.CompanyName,
			customer.ContactPerson,
			customer.Email,
			customer.Phone,
			customer.City,
			customer.Country,
			customer.ApplicationCount,
			customer.CertificateCount,
			customer.LastApplicationAt.Format("2006-01-02"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	logger.Info("Customer export generated", map[string]interface{}{
		"certifier_id": p.UserID,
		"rows":         len(customers),
	})
	return f, nil
}
