package drill

import "time"

// Config holds configuration for the emergency drill
type Config struct {
	BaseURL    string        // Base URL of the service
	NumAlerts  int           // Number of alerts to trigger
	Recipients int           // Guardians per alert
	Pings      int           // Location pings per alert
	TopAreas   int           // Number of riskiest areas to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for scenarios
	LogFile    string        // Log file for drill output
	Verbose    bool          // Enable verbose logging
}

// Contact mirrors the API recipient schema
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Location mirrors the API location schema
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy_m,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// PlannedResponse is one scripted responder event
type PlannedResponse struct {
	ResponderID   string `json:"responder_id"`
	ResponderName string `json:"responder_name"`
	Kind          string `json:"kind"`
}

// Scenario scripts one emergency from trigger to terminal state
type Scenario struct {
	RequestID  string            `json:"request_id"`
	SenderID   string            `json:"sender_id"`
	SenderName string            `json:"sender_name"`
	Message    string            `json:"message"`
	Priority   string            `json:"priority"`
	Origin     Location          `json:"origin"`
	Recipients []Contact         `json:"recipients"`
	Pings      []Location        `json:"pings"`
	Plan       []PlannedResponse `json:"plan"`
	Closer     string            `json:"closer"` // "resolve" or "cancel"

	AlertID string `json:"alert_id,omitempty"` // filled in once triggered
	Settled bool   `json:"settled,omitempty"`  // true once the full lifecycle ran clean
}

// TriggerRequest mirrors the API schema for POST /alerts
type TriggerRequest struct {
	RequestID  string    `json:"request_id,omitempty"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Message    string    `json:"message,omitempty"`
	Priority   string    `json:"priority,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Recipients []Contact `json:"recipients"`
}

// RespondRequest mirrors the API schema for POST /alerts/{id}/respond
type RespondRequest struct {
	ResponderID   string    `json:"responder_id"`
	ResponderName string    `json:"responder_name,omitempty"`
	Kind          string    `json:"kind"`
	Location      *Location `json:"location,omitempty"`
}

// CloseRequest mirrors the API schema for cancel and resolve calls
type CloseRequest struct {
	ActorID  string `json:"actor_id"`
	Password string `json:"password,omitempty"`
}

// Response is the responder event slice of an alert snapshot
type Response struct {
	ResponderID string `json:"responder_id"`
	Kind        string `json:"kind"`
}

// Alert is the slice of the alert snapshot the drill verifies
type Alert struct {
	ID              string     `json:"id"`
	SenderID        string     `json:"sender_id"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	Responses       []Response `json:"responses"`
	AllAcknowledged bool       `json:"all_acknowledged"`
}

// Reading is the slice of the safety reading the drill verifies
type Reading struct {
	OverallScore int    `json:"overall_score"`
	Confidence   int    `json:"confidence"`
	RiskLevel    string `json:"risk_level"`
	Degraded     bool   `json:"degraded"`
}

// AreaRank represents one ranked area from the risk listing
type AreaRank struct {
	Rank      int     `json:"rank"`
	AreaID    string  `json:"area_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Score     int     `json:"score"`
	RiskLevel string  `json:"risk_level"`
}

// Stats holds drill statistics
type Stats struct {
	ScenariosGenerated int
	AlertsTriggered    int
	AlertsSettled      int
	AlertsFailed       int
	CloseReplays       int
	ResponsesPosted    int
	PingsPosted        int
	ReadingsRetrieved  int
	AreasRetrieved     int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
