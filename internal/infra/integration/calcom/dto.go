package calcom

type bookingResponses struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type createBookingRequest struct {
	EventTypeID int               `json:"eventTypeId"`
	Start       string            `json:"start"`
	Responses   bookingResponses  `json:"responses"`
	TimeZone    string            `json:"timeZone"`
	Language    string            `json:"language"`
	Metadata    map[string]string `json:"metadata"`
}

type bookingResponse struct {
	ID        int64  `json:"id"`
	UID       string `json:"uid"`
	Title     string `json:"title"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
}

type errorResponse struct {
	Message string `json:"message"`
}
