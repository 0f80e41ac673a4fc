package dto

type CategoryFilters struct {
	ParentID *string // "" filters root categories (parent_id IS NULL)
	IsActive *bool
	Page     int
	PageSize int
}
