package tenant

// Company is a tenant: the unit of data isolation.
type Company struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Industry   string `json:"industry,omitempty"`
	BrandColor string `json:"brand_color,omitempty"`
	LogoURL    string `json:"logo_url,omitempty"`
}

// Member is an employee or dependent enrolled through a company.
type Member struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Department   string `json:"department,omitempty"`
	PlanID       string `json:"plan_id,omitempty"`
	IsPrimary    bool   `json:"is_primary"`
	PasswordHash string `json:"-"`
}

// Plan describes the benefit plan a member is enrolled in.
type Plan struct {
	ID             string  `json:"id"`
	PlanType       string  `json:"plan_type"`
	Deductible     float64 `json:"deductible"`
	OOPMax         float64 `json:"oop_max"`
	MonthlyPremium float64 `json:"monthly_premium"`
}
