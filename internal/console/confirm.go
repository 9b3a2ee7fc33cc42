package console

const CancelPrompt = "Are you sure you want to cancel this notification?"

// Confirmer gates destructive actions on an explicit yes from the operator.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Confirmed is the Confirmer for requests that already carry the operator's answer.
func Confirmed(answer bool) Confirmer {
	return ConfirmFunc(func(string) bool { return answer })
}
