// internal/repository/mock_gen.go
package repository

//go:generate mockgen -source=./user.go -destination=../mocks/mock_user_repository.go -package=mocks UserRepositoryIface
//go:generate mockgen -source=./role.go -destination=../mocks/mock_role_repository.go -package=mocks RoleRepositoryIface
//go:generate mockgen -source=./organization.go -destination=../mocks/mock_organization_repository.go -package=mocks OrganizationRepositoryIface
//go:generate mockgen -source=./admin.go -destination=../mocks/mock_admin_repository.go -package=mocks AdminRepositoryIface
//go:generate mockgen -source=./setup_token.go -destination=../mocks/mock_setup_token_repository.go -package=mocks SetupTokenRepositoryIface
//go:generate mockgen -source=./audit_log.go -destination=../mocks/mock_audit_log_repository.go -package=mocks AuditLogRepositoryIface
