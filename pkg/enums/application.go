package enums

// ApplicationKind distinguishes the two intake forms.
type ApplicationKind string

const (
	ApplicationKindDJ        ApplicationKind = "DJ"
	ApplicationKindVolunteer ApplicationKind = "VOLUNTEER"
)

func (k ApplicationKind) IsValid() bool {
	return k == ApplicationKindDJ || k == ApplicationKindVolunteer
}
