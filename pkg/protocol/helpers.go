package protocol

// NewStatusMessage creates a status message
func NewStatusMessage(status StatusData) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewErrorMessage creates an error message
func NewErrorMessage(msg string, count uint64) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: msg, Count: count})
}

// NewControlsMessage creates a camera controls message from a field map
func NewControlsMessage(controls map[string]interface{}) (*Message, error) {
	return NewMessage(TypeControls, controls)
}

// GetStatusData extracts status data from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetControls extracts camera controls from a message
func (m *Message) GetControls() (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return data, nil
}
