package gtfs

// Feed holds the rows of a GTFS feed that trip reconciliation needs.
type Feed struct {
	Stops         []StopRow
	Routes        []RouteRow
	Trips         []TripRow
	StopTimes     []StopTimeRow
	Calendar      []CalendarRow
	CalendarDates []CalendarDateRow
	LastModified  string // From HTTP response header
	ETag          string // From HTTP response header
}

type StopRow struct {
	StopID        string `csv:"stop_id"`
	StopCode      string `csv:"stop_code"`
	StopName      string `csv:"stop_name"`
	ParentStation string `csv:"parent_station"`
}

type RouteRow struct {
	RouteID        string `csv:"route_id"`
	RouteShortName string `csv:"route_short_name"`
	RouteLongName  string `csv:"route_long_name"`
	RouteType      string `csv:"route_type"`
}

type TripRow struct {
	TripID       string `csv:"trip_id"`
	RouteID      string `csv:"route_id"`
	ServiceID    string `csv:"service_id"`
	TripHeadsign string `csv:"trip_headsign"`
	DirectionID  string `csv:"direction_id"`
	BlockID      string `csv:"block_id"`
}

type StopTimeRow struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
	PickupType    string `csv:"pickup_type"`
	DropOffType   string `csv:"drop_off_type"`
}

type CalendarRow struct {
	ServiceID string `csv:"service_id"`
	Monday    string `csv:"monday"`
	Tuesday   string `csv:"tuesday"`
	Wednesday string `csv:"wednesday"`
	Thursday  string `csv:"thursday"`
	Friday    string `csv:"friday"`
	Saturday  string `csv:"saturday"`
	Sunday    string `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

type CalendarDateRow struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType string `csv:"exception_type"`
}
