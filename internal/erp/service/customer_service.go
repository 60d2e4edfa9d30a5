package service

import (
	"context"
	"strings"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
)

// CustomerService 客户与联系人
type CustomerService struct {
	base
}

func NewCustomerService(b base) *CustomerService {
	return &CustomerService{base: b}
}

type CustomerRequest struct {
	Code          string  `json:"code" binding:"required,max=50"`
	Name          string  `json:"name" binding:"required,max=200"`
	ContactPerson string  `json:"contact_person"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email" binding:"omitempty,email"`
	Address       string  `json:"address"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Country       string  `json:"country"`
	PostalCode    string  `json:"postal_code"`
	TaxID         string  `json:"tax_id"`
	Industry      string  `json:"industry"`
	CustomerType  string  `json:"customer_type" binding:"omitempty,oneof=retail wholesale distributor enterprise"`
	CreditLimit   float64 `json:"credit_limit" binding:"gte=0"`
	PaymentTerms  string  `json:"payment_terms"`
	Notes         string  `json:"notes"`
	IsActive      *bool   `json:"is_active"`
}

type CustomerPatch struct {
	Code          *string  `json:"code" binding:"omitempty,min=1,max=50"`
	Name          *string  `json:"name" binding:"omitempty,min=1,max=200"`
	ContactPerson *string  `json:"contact_person"`
	Phone         *string  `json:"phone"`
	Email         *string  `json:"email" binding:"omitempty,email"`
	Address       *string  `json:"address"`
	City          *string  `json:"city"`
	State         *string  `json:"state"`
	Country       *string  `json:"country"`
	PostalCode    *string  `json:"postal_code"`
	TaxID         *string  `json:"tax_id"`
	Industry      *string  `json:"industry"`
	CustomerType  *string  `json:"customer_type" binding:"omitempty,oneof=retail wholesale distributor enterprise"`
	CreditLimit   *float64 `json:"credit_limit" binding:"omitempty,gte=0"`
	PaymentTerms  *string  `json:"payment_terms"`
	Notes         *string  `json:"notes"`
	IsActive      *bool    `json:"is_active"`
}

func (p *CustomerPatch) apply(c *entity.Customer) {
	setS(&c.Code, p.Code)
	setS(&c.Name, p.Name)
	setS(&c.ContactPerson, p.ContactPerson)
	setS(&c.Phone, p.Phone)
	setS(&c.Email, p.Email)
	setS(&c.Address, p.Address)
	setS(&c.City, p.City)
	setS(&c.State, p.State)
	setS(&c.Country, p.Country)
	setS(&c.PostalCode, p.PostalCode)
	setS(&c.TaxID, p.TaxID)
	setS(&c.Industry, p.Industry)
	setS(&c.CustomerType, p.CustomerType)
	setF(&c.CreditLimit, p.CreditLimit)
	setS(&c.PaymentTerms, p.PaymentTerms)
	setS(&c.Notes, p.Notes)
	setB(&c.IsActive, p.IsActive)
}

type ContactRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	Position  string `json:"position"`
	Phone     string `json:"phone"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email" binding:"omitempty,email"`
	IsPrimary bool   `json:"is_primary"`
	Notes     string `json:"notes"`
}

type ContactPatch struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	Position  *string `json:"position"`
	Phone     *string `json:"phone"`
	Mobile    *string `json:"mobile"`
	Email     *string `json:"email" binding:"omitempty,email"`
	IsPrimary *bool   `json:"is_primary"`
	Notes     *string `json:"notes"`
}

func (s *CustomerService) List(ctx context.Context, p repository.ListParams) (*Page[entity.Customer], error) {
	list, total, err := s.repos.Customer.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *CustomerService) Get(ctx context.Context, id string) (*entity.Customer, error) {
	c, err := s.repos.Customer.FindByID(ctx, id)
	return c, translate(err, "客户")
}

func (s *CustomerService) Create(ctx context.Context, userID string, req *CustomerRequest) (*entity.Customer, error) {
	code := strings.TrimSpace(req.Code)
	taken, err := s.repos.Customer.CodeTaken(ctx, code, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflictError("客户编码 %s 已存在", code)
	}
	c := &entity.Customer{
		ID:            uuid.New().String(),
		Code:          code,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Country:       req.Country,
		PostalCode:    req.PostalCode,
		TaxID:         req.TaxID,
		Industry:      req.Industry,
		CustomerType:  req.CustomerType,
		CreditLimit:   req.CreditLimit,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
		IsActive:      boolOr(req.IsActive, true),
		CreatedBy:     userID,
	}
	if err := s.repos.Customer.Create(ctx, c); err != nil {
		return nil, translate(err, "客户")
	}
	return c, nil
}

func (s *CustomerService) Update(ctx context.Context, id string, req *CustomerPatch) (*entity.Customer, error) {
	c, err := s.repos.Customer.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "客户")
	}
	if req.Code != nil && *req.Code != c.Code {
		taken, err := s.repos.Customer.CodeTaken(ctx, *req.Code, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflictError("客户编码 %s 已存在", *req.Code)
		}
	}
	req.apply(c)
	if err := s.repos.Customer.Update(ctx, c); err != nil {
		return nil, translate(err, "客户")
	}
	return c, nil
}

// Delete 被报价单、订单或发票引用的客户不能删除；联系人一并删除
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	return s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Customer.FindByID(ctx, id); err != nil {
			return translate(err, "客户")
		}
		referenced, err := r.Customer.IsReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return stateError("客户已被报价单、订单或发票引用，不能删除")
		}
		return r.Customer.Delete(ctx, id)
	})
}

func (s *CustomerService) ListContacts(ctx context.Context, customerID string) ([]entity.CustomerContact, error) {
	if _, err := s.repos.Customer.FindByID(ctx, customerID); err != nil {
		return nil, translate(err, "客户")
	}
	return s.repos.Customer.FindContacts(ctx, customerID)
}

// AddContact 设为主联系人时清除其他联系人的主标记
func (s *CustomerService) AddContact(ctx context.Context, customerID string, req *ContactRequest) (*entity.CustomerContact, error) {
	var contact *entity.CustomerContact
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Customer.FindByID(ctx, customerID); err != nil {
			return translate(err, "客户")
		}
		contact = &entity.CustomerContact{
			ID:         uuid.New().String(),
			CustomerID: customerID,
			Name:       req.Name,
			Position:   req.Position,
			Phone:      req.Phone,
			Mobile:     req.Mobile,
			Email:      req.Email,
			IsPrimary:  req.IsPrimary,
			Notes:      req.Notes,
		}
		if err := r.Customer.SaveContact(ctx, contact); err != nil {
			return err
		}
		if contact.IsPrimary {
			return r.Customer.ClearPrimary(ctx, customerID, contact.ID)
		}
		return nil
	})
	return contact, err
}

func (s *CustomerService) UpdateContact(ctx context.Context, id string, req *ContactPatch) (*entity.CustomerContact, error) {
	var contact *entity.CustomerContact
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		c, err := r.Customer.FindContactByID(ctx, id)
		if err != nil {
			return translate(err, "联系人")
		}
		setS(&c.Name, req.Name)
		setS(&c.Position, req.Position)
		setS(&c.Phone, req.Phone)
		setS(&c.Mobile, req.Mobile)
		setS(&c.Email, req.Email)
		setB(&c.IsPrimary, req.IsPrimary)
		setS(&c.Notes, req.Notes)
		if err := r.Customer.SaveContact(ctx, c); err != nil {
			return err
		}
		if c.IsPrimary {
			if err := r.Customer.ClearPrimary(ctx, c.CustomerID, c.ID); err != nil {
				return err
			}
		}
		contact = c
		return nil
	})
	return contact, err
}

func (s *CustomerService) DeleteContact(ctx context.Context, id string) error {
	if _, err := s.repos.Customer.FindContactByID(ctx, id); err != nil {
		return translate(err, "联系人")
	}
	return s.repos.Customer.DeleteContact(ctx, id)
}
