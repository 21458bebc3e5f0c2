package enums

// ActorRole is the authenticated principal type carried in JWT claims.
type ActorRole string

const (
	ActorRoleAdmin     ActorRole = "admin"
	ActorRoleAffiliate ActorRole = "affiliate"
)

func (r ActorRole) IsValid() bool {
	return r == ActorRoleAdmin || r == ActorRoleAffiliate
}
