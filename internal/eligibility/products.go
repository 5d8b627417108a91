package eligibility

// Product identifiers with a built-in strategy.
const (
	ProductPearAllergy = "pear-allergy"
	ProductHairLoss    = "hair-loss"
)

// Disqualification messages for the built-in products.
const (
	PearAllergyIneligibleReason = "Based on your answers, we recommend speaking with your GP before proceeding."
	HairLossIneligibleReason    = "Based on your medical history, we recommend consulting with a specialist before starting treatment."
)

// PearAllergy returns the strategy for the Genovian pear allergy treatment.
func PearAllergy() Strategy {
	return ruleStrategy{productID: ProductPearAllergy, ineligibleReason: PearAllergyIneligibleReason}
}

// HairLoss returns the strategy for the hair loss treatment.
func HairLoss() Strategy {
	return ruleStrategy{productID: ProductHairLoss, ineligibleReason: HairLossIneligibleReason}
}

// Builtin returns every built-in strategy.
func Builtin() []Strategy {
	return []Strategy{PearAllergy(), HairLoss()}
}
