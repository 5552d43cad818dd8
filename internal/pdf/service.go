package pdf

// Service bundles the sheet engine components behind one value. It works on
// local files only; storage and identity are the caller's concern.
type Service struct {
	validator *Validator
	discovery *Discovery
	attacher  *Attacher
}

// NewService creates a new sheet engine with all components
func NewService(debug bool) *Service {
	return &Service{
		validator: NewValidator(debug),
		discovery: NewDiscovery(debug),
		attacher:  NewAttacher(debug),
	}
}

// Validate returns the first compatibility problem of the sheet at path.
func (s *Service) Validate(path string) error {
	return s.validator.Validate(path)
}

// ValidateFile reports compatibility as a result value.
func (s *Service) ValidateFile(req ValidateRequest) *ValidateResult {
	return s.validator.ValidateFile(req)
}

// ListCalculableFields lists the fields of path that can carry a calculation.
func (s *Service) ListCalculableFields(path string) (*ListFieldsResult, error) {
	fields, err := s.discovery.ListCalculableFieldsFromFile(path)
	if err != nil {
		return nil, err
	}
	return &ListFieldsResult{Path: path, Fields: fields, Count: len(fields)}, nil
}

// RegisterHelperScript stores the helper library in the sheet at path.
func (s *Service) RegisterHelperScript(path, source string) error {
	return s.attacher.RegisterHelperScript(path, source)
}

// AttachFieldCalculation wires js as the calculate action of target.
func (s *Service) AttachFieldCalculation(path, js, target string) error {
	return s.attacher.AttachFieldCalculation(path, js, target)
}

// Attach registers the helper library and wires js to target in one save.
func (s *Service) Attach(path, helperSource, js, target string) error {
	return s.attacher.Attach(path, helperSource, js, target)
}
