package dto

type SendInput struct {
	Name   string
	Weight *float64
}

type SendUniqueInput struct {
	Name string
}

type DeliveryOutput struct {
	Name            string
	Session         string
	NotificationIDs []string
	Weight          *float64
	Status          string
	Error           string
}

type FlushOutput struct {
	Attempted int
	Sent      int
	Rejected  int
	Remaining int
}

type EventOutput struct {
	Name            string
	Session         string
	NotificationIDs []string
	Params          string
}
