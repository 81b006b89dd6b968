package intent

import "fmt"

// Label names what the user wants. The set is closed.
type Label string

const (
	AskForPhone       Label = "ask_for_phone"
	Greeting          Label = "greeting"
	Help              Label = "help"
	Exit              Label = "exit"
	RefundProcess     Label = "refund_process"
	OrderDetails      Label = "order_details"
	ChangeAddress     Label = "change_address"
	ChangePhoneNumber Label = "change_phone_number"
	ManageOrders      Label = "manage_orders"
	Complaint         Label = "complaint"
	Thanks            Label = "thanks"
	Identity          Label = "identity"

	// Smalltalk and Unknown are produced by the classifier, never trained on.
	Smalltalk Label = "smalltalk"
	Unknown   Label = "unknown"
)

var corpusLabels = []Label{
	AskForPhone, Greeting, Help, Exit, RefundProcess, OrderDetails,
	ChangeAddress, ChangePhoneNumber, ManageOrders, Complaint, Thanks, Identity,
}

// CorpusLabels returns the labels a training example may carry.
func CorpusLabels() []Label {
	return append([]Label(nil), corpusLabels...)
}

// AllLabels returns every label, including Smalltalk and Unknown.
func AllLabels() []Label {
	return append(CorpusLabels(), Smalltalk, Unknown)
}

// ParseLabel converts a string into a known Label.
func ParseLabel(s string) (Label, error) {
	l := Label(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown intent label %q", s)
	}
	return l, nil
}

// Valid reports whether l belongs to the closed label set.
func (l Label) Valid() bool {
	switch l {
	case Smalltalk, Unknown:
		return true
	}
	return l.Trainable()
}

// Trainable reports whether l may label a corpus example.
func (l Label) Trainable() bool {
	for _, c := range corpusLabels {
		if c == l {
			return true
		}
	}
	return false
}

// Terminal reports whether handling l ends the conversation.
func (l Label) Terminal() bool {
	return l == Help || l == Exit
}

func (l Label) String() string { return string(l) }
