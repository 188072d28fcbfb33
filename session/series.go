package session

// DefaultWindow is how many points the price and P&L series keep.
const DefaultWindow = 80

// Point is one labeled chart value.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is a bounded chart series. Once full, adding a point evicts the
// oldest one.
type Series struct {
	window int
	points []Point
}

func NewSeries(window int) *Series {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Series{window: window, points: make([]Point, 0, window)}
}

func (s *Series) Add(p Point) {
	if len(s.points) == s.window {
		copy(s.points, s.points[1:])
		s.points[len(s.points)-1] = p
		return
	}
	s.points = append(s.points, p)
}

// Reset replaces the series with a single baseline point.
func (s *Series) Reset(baseline Point) {
	s.points = append(s.points[:0], baseline)
}

func (s *Series) Points() []Point {
	return append([]Point{}, s.points...)
}

func (s *Series) Len() int    { return len(s.points) }
func (s *Series) Window() int { return s.window }

// Last returns the newest point.
func (s *Series) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}
