package wallet

// NoticeKind classifies user-visible messages.
type NoticeKind string

const (
	NoticeSuccess            NoticeKind = "success"
	NoticeNotInstalled       NoticeKind = "not_installed"
	NoticeConnectFailed      NoticeKind = "connect_failed"
	NoticeSigningUnsupported NoticeKind = "signing_unsupported"
	NoticeAuthFailed         NoticeKind = "auth_failed"
	NoticeDisconnectFailed   NoticeKind = "disconnect_failed"
)

// Notice is a transient message for the user, like a toast.
type Notice struct {
	Kind        NoticeKind
	Title       string
	Description string
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}
