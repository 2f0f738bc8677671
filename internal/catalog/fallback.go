package catalog

// FallbackMetrics is the built-in metric list used when the semantic service is unreachable.
func FallbackMetrics() []Metric {
	return []Metric{
		{Name: "total_claims", Description: "Total billed amount of claims", Kind: MetricSimple},
		{Name: "paid_amount", Description: "Amount paid by the plan", Kind: MetricSimple},
		{Name: "member_responsibility", Description: "Amount owed by the member", Kind: MetricSimple},
		{Name: "claims_by_type", Description: "Number of claims per claim type", Kind: MetricSimple},
		{Name: "deductible_met", Description: "Deductible met so far this plan year", Kind: MetricSimple},
		{Name: "oop_spent", Description: "Out-of-pocket spending this plan year", Kind: MetricSimple},
		{Name: "claim_count", Description: "Number of claims filed", Kind: MetricSimple},
	}
}

// FallbackDimensions is the built-in dimension list used when the semantic service is unreachable.
func FallbackDimensions() []Dimension {
	return []Dimension{
		{Name: "claim_date", Description: "Date of service", Kind: DimensionTime, Grain: "day"},
		{Name: "claim_type", Description: "Medical, dental, vision or pharmacy", Kind: DimensionCategorical},
		{Name: "claim_status", Description: "Processing status of the claim", Kind: DimensionCategorical},
		{Name: "provider_name", Description: "Rendering provider", Kind: DimensionCategorical},
		{Name: "department", Description: "Member department", Kind: DimensionCategorical},
		{Name: "plan_type", Description: "Benefit plan type", Kind: DimensionCategorical},
	}
}
