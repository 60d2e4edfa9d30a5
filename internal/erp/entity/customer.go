package entity

import (
	"time"
)

// CustomerType 客户类型
const (
	CustomerTypeRetail      = "retail"      // 零售客户
	CustomerTypeWholesale   = "wholesale"   // 批发客户
	CustomerTypeDistributor = "distributor" // 代理商
	CustomerTypeEnterprise  = "enterprise"  // 企业客户
)

// Customer 客户实体
type Customer struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	Code          string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name          string    `json:"name" gorm:"size:200;not null;index"`
	ContactPerson string    `json:"contact_person" gorm:"size:100"`
	Phone         string    `json:"phone" gorm:"size:30"`
	Email         string    `json:"email" gorm:"size:100"`
	Address       string    `json:"address" gorm:"size:500"`
	City          string    `json:"city" gorm:"size:100"`
	State         string    `json:"state" gorm:"size:100"`
	Country       string    `json:"country" gorm:"size:100"`
	PostalCode    string    `json:"postal_code" gorm:"size:20"`
	TaxID         string    `json:"tax_id" gorm:"size:50"`
	Industry      string    `json:"industry" gorm:"size:100"`
	CustomerType  string    `json:"customer_type" gorm:"size:20"`
	CreditLimit   float64   `json:"credit_limit" gorm:"type:decimal(12,2);default:0"`
	PaymentTerms  string    `json:"payment_terms" gorm:"size:100"`
	Notes         string    `json:"notes" gorm:"type:text"`
	IsActive      bool      `json:"is_active" gorm:"not null"`
	CreatedBy     string    `json:"created_by" gorm:"size:64"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Contacts []CustomerContact `json:"contacts,omitempty" gorm:"foreignKey:CustomerID"`
}

func (Customer) TableName() string {
	return "erp_customers"
}

// CustomerContact 客户联系人
type CustomerContact struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid"`
	CustomerID string    `json:"customer_id" gorm:"type:uuid;not null;index"`
	Name       string    `json:"name" gorm:"size:100;not null"`
	Position   string    `json:"position" gorm:"size:100"`
	Phone      string    `json:"phone" gorm:"size:30"`
	Mobile     string    `json:"mobile" gorm:"size:30"`
	Email      string    `json:"email" gorm:"size:100"`
	IsPrimary  bool      `json:"is_primary" gorm:"not null;default:false"`
	Notes      string    `json:"notes" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (CustomerContact) TableName() string {
	return "erp_customer_contacts"
}
