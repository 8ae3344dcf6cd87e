package models

// Model is implemented by every record the repositories persist.
type Model interface {
	Key() string     // Key returns the identifier the record is stored under
	Validate() error // Validate checks if the record's data is valid and returns an error if not
}

// Repository defines the data access operations shared by the persistence layer.
type Repository[T Model] interface {
	Get(key string) (T, error) // Get retrieves a record by its key
	List() ([]T, error)        // List retrieves every stored record
}
