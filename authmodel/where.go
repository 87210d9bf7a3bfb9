package authmodel

// Operator is a comparison in the auth framework's database-agnostic filter model.
type Operator string

const (
	OpEq         Operator = "eq"
	OpIn         Operator = "in"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
)

// Operators lists every operator the adapter translates.
var Operators = []Operator{OpEq, OpIn, OpContains, OpStartsWith, OpEndsWith, OpNe, OpGt, OpGte, OpLt, OpLte}

// Connector joins a filter to the previous one.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// Where is a single predicate on a model field.
type Where struct {
	Field     string    `json:"field"`
	Operator  Operator  `json:"operator"`
	Value     any       `json:"value"`
	Connector Connector `json:"connector,omitempty"`
}

// SortDirection is the direction requested by the auth framework, lower case.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortBy orders results by a single field.
type SortBy struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}
