package models

import (
	"encoding/json"
	"fmt"
)

type UserRole string

const (
	UserRoleStaff   UserRole = "staff"
	UserRoleManager UserRole = "manager"
	UserRoleOwner   UserRole = "owner"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleStaff, UserRoleManager, UserRoleOwner:
		return true
	}
	return false
}

// AtLeastManager is true for manager and owner.
func (r UserRole) AtLeastManager() bool {
	return r == UserRoleManager || r == UserRoleOwner
}

func (r *UserRole) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(r), "user role", func(s string) bool { return UserRole(s).IsValid() })
}

type ProductCategory string

const (
	ProductCategorySpirits   ProductCategory = "spirits"
	ProductCategoryRum       ProductCategory = "rum"
	ProductCategoryBeer      ProductCategory = "beer"
	ProductCategoryWine      ProductCategory = "wine"
	ProductCategoryMixers    ProductCategory = "mixers"
	ProductCategoryCocktails ProductCategory = "cocktails"
	ProductCategoryOther     ProductCategory = "other"
)

func (c ProductCategory) IsValid() bool {
	switch c {
	case ProductCategorySpirits, ProductCategoryRum, ProductCategoryBeer, ProductCategoryWine,
		ProductCategoryMixers, ProductCategoryCocktails, ProductCategoryOther:
		return true
	}
	return false
}

func (c *ProductCategory) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(c), "product category", func(s string) bool { return ProductCategory(s).IsValid() })
}

type ProductUnit string

const (
	ProductUnitBottle ProductUnit = "bottle"
	ProductUnitMl     ProductUnit = "ml"
	ProductUnitPint   ProductUnit = "pint"
	ProductUnitCan    ProductUnit = "can"
	ProductUnitKeg    ProductUnit = "keg"
)

func (u ProductUnit) IsValid() bool {
	switch u {
	case ProductUnitBottle, ProductUnitMl, ProductUnitPint, ProductUnitCan, ProductUnitKeg:
		return true
	}
	return false
}

func (u *ProductUnit) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(u), "product unit", func(s string) bool { return ProductUnit(s).IsValid() })
}

type MovementType string

const (
	MovementTypeIn  MovementType = "IN"
	MovementTypeOut MovementType = "OUT"
)

func (t MovementType) IsValid() bool {
	return t == MovementTypeIn || t == MovementTypeOut
}

func (t *MovementType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(t), "movement type", func(s string) bool { return MovementType(s).IsValid() })
}

type MovementReason string

const (
	MovementReasonDelivery   MovementReason = "delivery"
	MovementReasonWastage    MovementReason = "wastage"
	MovementReasonBreakage   MovementReason = "breakage"
	MovementReasonTheft      MovementReason = "theft"
	MovementReasonAdjustment MovementReason = "adjustment"
	MovementReasonReturn     MovementReason = "return"
	MovementReasonOther      MovementReason = "other"
)

func (r MovementReason) IsValid() bool {
	switch r {
	case MovementReasonDelivery, MovementReasonWastage, MovementReasonBreakage, MovementReasonTheft,
		MovementReasonAdjustment, MovementReasonReturn, MovementReasonOther:
		return true
	}
	return false
}

func (r *MovementReason) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(r), "movement reason", func(s string) bool { return MovementReason(s).IsValid() })
}

type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "OPEN"
	ShiftStatusClosed ShiftStatus = "CLOSED"
)

func (s ShiftStatus) IsValid() bool {
	return s == ShiftStatusOpen || s == ShiftStatusClosed
}

func (s *ShiftStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(s), "shift status", func(v string) bool { return ShiftStatus(v).IsValid() })
}

type LossSeverity string

const (
	LossSeverityInfo     LossSeverity = "INFO"
	LossSeverityWarning  LossSeverity = "WARNING"
	LossSeverityCritical LossSeverity = "CRITICAL"
)

func (s LossSeverity) IsValid() bool {
	switch s {
	case LossSeverityInfo, LossSeverityWarning, LossSeverityCritical:
		return true
	}
	return false
}

// Alerting severities are published to the loss alert topic.
func (s LossSeverity) Alerting() bool {
	return s == LossSeverityWarning || s == LossSeverityCritical
}

func (s *LossSeverity) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(s), "loss severity", func(v string) bool { return LossSeverity(v).IsValid() })
}

type ReasonCode string

const (
	ReasonCodeTheft      ReasonCode = "theft"
	ReasonCodeOverPour   ReasonCode = "over_pour"
	ReasonCodeWastage    ReasonCode = "wastage"
	ReasonCodeEntryError ReasonCode = "entry_error"
	ReasonCodeUnresolved ReasonCode = "unresolved"
)

func (r ReasonCode) IsValid() bool {
	switch r {
	case ReasonCodeTheft, ReasonCodeOverPour, ReasonCodeWastage, ReasonCodeEntryError, ReasonCodeUnresolved:
		return true
	}
	return false
}

func (r *ReasonCode) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(r), "reason code", func(v string) bool { return ReasonCode(v).IsValid() })
}

func unmarshalEnum(b []byte, dst *string, name string, valid func(string) bool) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%s must be string", name)
	}
	if !valid(s) {
		return fmt.Errorf("invalid %s %q", name, s)
	}
	*dst = s
	return nil
}

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderStatusOrdered   PurchaseOrderStatus = "ordered"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "cancelled"
)

func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusDraft, PurchaseOrderStatusOrdered, PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled:
		return true
	}
	return false
}

func (s *PurchaseOrderStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, (*string)(s), "purchase order status", func(v string) bool { return PurchaseOrderStatus(v).IsValid() })
}
