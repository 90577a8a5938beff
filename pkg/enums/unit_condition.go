package enums

// UnitCondition mirrors the inventory_units.condition column.
type UnitCondition string

const (
	UnitConditionNew         UnitCondition = "new"
	UnitConditionGood        UnitCondition = "good"
	UnitConditionFair        UnitCondition = "fair"
	UnitConditionDamaged     UnitCondition = "damaged"
	UnitConditionUnderRepair UnitCondition = "under_repair"
)

func (c UnitCondition) String() string {
	return string(c)
}

func (c UnitCondition) IsValid() bool {
	switch c {
	case UnitConditionNew, UnitConditionGood, UnitConditionFair,
		UnitConditionDamaged, UnitConditionUnderRepair:
		return true
	default:
		return false
	}
}

func ParseUnitCondition(value string) (UnitCondition, bool) {
	condition := UnitCondition(value)
	if !condition.IsValid() {
		return "", false
	}
	return condition, true
}
