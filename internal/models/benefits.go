package models

// MembershipBenefit describes the benefit package for a tier, shown on the
// plan-selection and upgrade-comparison steps.
type MembershipBenefit struct {
	Level              Level    `json:"level"`
	Tagline            string   `json:"tagline"`
	PopularTag         bool     `json:"popular_tag,omitempty"`
	RoadsideAssistance []string `json:"roadside_assistance"`
	AdditionalBenefits []string `json:"additional_benefits"`
}

var membershipBenefits = map[Level]MembershipBenefit{
	LevelClassic: {
		Level:   LevelClassic,
		Tagline: "Essential benefits for the road and beyond",
		RoadsideAssistance: []string{
			"Tows up to 3 miles",
			"$60 toward locksmith parts and labor",
			"Free emergency fuel delivery; member pays for fuel",
			"Battery service and jump start",
			"Flat tire service",
			"Referral to AAA Approved Auto Repair facilities",
		},
		AdditionalBenefits: []string{
			"Free Hertz Gold membership with enrollment",
			"Free ID theft protection",
			"AAA discounts on everyday purchases",
		},
	},
	LevelPlus: {
		Level:      LevelPlus,
		Tagline:    "Enhanced coverage with extended benefits",
		PopularTag: true,
		RoadsideAssistance: []string{
			"4 service calls, tows up to 100 miles each",
			"$100 toward vehicle lockout services",
			"Free emergency fuel and delivery",
			"Battery service and jump start",
			"Flat tire service",
			"Referral to AAA Approved Auto Repair facilities",
		},
		AdditionalBenefits: []string{
			"All Classic benefits included",
			"Discount on passport photos",
			"Discount on notary services",
			"Free international AAA maps",
			"20% CARFAX report discount",
		},
	},
	LevelPremier: {
		Level:   LevelPremier,
		Tagline: "Premium protection with maximum coverage",
		RoadsideAssistance: []string{
			"1 tow per household up to 200 miles, remaining tows up to 100 miles",
			"$150 toward vehicle lockout services",
			"Free emergency fuel and delivery",
			"Battery service and jump start",
			"Flat tire service",
			"Priority service and extended hours",
		},
		AdditionalBenefits: []string{
			"All Plus benefits included",
			"1 free set of printed + digital passport photos per membership year",
			"Free notary services",
			"1-day complimentary standard rental car with in-territory tow",
			"1 free CARFAX report per year and 40% discount on additional reports",
			"Enhanced trip interruption coverage",
		},
	},
}

// BenefitsFor returns the benefit package for a level, or false when the
// level is unknown.
func BenefitsFor(level Level) (MembershipBenefit, bool) {
	b, ok := membershipBenefits[level]
	return b, ok
}
