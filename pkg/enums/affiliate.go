package enums

// AffiliateStatus gates whether a referral partner can log in and earn.
type AffiliateStatus string

const (
	AffiliateStatusActive   AffiliateStatus = "ACTIVE"
	AffiliateStatusInactive AffiliateStatus = "INACTIVE"
)

func (s AffiliateStatus) IsValid() bool {
	return s == AffiliateStatusActive || s == AffiliateStatusInactive
}

// CommissionKind selects how a commission rule is applied to a line item.
type CommissionKind string

const (
	CommissionKindPercentage CommissionKind = "PERCENTAGE"
	CommissionKindFixed      CommissionKind = "FIXED"
)

func (k CommissionKind) IsValid() bool {
	return k == CommissionKindPercentage || k == CommissionKindFixed
}
