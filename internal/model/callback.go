package model

// CallbackType is the "type" query parameter of a provider webhook call.
type CallbackType string

const (
	CallbackErrorMessage CallbackType = "ERRORMESSAGE"
	CallbackAckAlarm     CallbackType = "ACKALARM"
	CallbackAckCheck     CallbackType = "ACKCHECK"
)

// RequestStatus is the driver's poll request type on /NotifyRequest/.
const RequestStatus = "STATUS"

func (t CallbackType) String() string { return string(t) }

// Known reports whether the driver knows how to process the callback.
func (t CallbackType) Known() bool {
	return t == CallbackErrorMessage || t == CallbackAckAlarm || t == CallbackAckCheck
}
