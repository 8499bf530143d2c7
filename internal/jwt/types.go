package jwt

type Role int

const (
	RoleAgent Role = iota + 1
)

type Agent struct {
	Id    string
	Email string
}
