package recap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/playperu/pacer/internal/pacer"
)

var ErrNoPoints = errors.New("cannot generate GPX: no GPS points")

const (
	gpxNamespace = "http://www.topografix.com/GPX/1/1"
	xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"
	gpxSchema    = "http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd"
	gpxCreator   = "PACER App"
)

type gpxDoc struct {
	XMLName  xml.Name    `xml:"gpx"`
	Version  string      `xml:"version,attr"`
	Creator  string      `xml:"creator,attr"`
	XMLNS    string      `xml:"xmlns,attr"`
	XMLNSXSI string      `xml:"xmlns:xsi,attr"`
	XSI      string      `xml:"xsi:schemaLocation,attr"`
	Metadata gpxMetadata `xml:"metadata"`
	Track    gpxTrack    `xml:"trk"`
}

type gpxMetadata struct {
	Name        string    `xml:"name"`
	Description string    `xml:"desc"`
	Time        time.Time `xml:"time"`
}

type gpxTrack struct {
	Name    string     `xml:"name"`
	Type    string     `xml:"type"`
	Segment gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat        float64        `xml:"lat,attr"`
	Lon        float64        `xml:"lon,attr"`
	Elevation  string         `xml:"ele,omitempty"`
	Time       time.Time      `xml:"time"`
	Extensions *gpxExtensions `xml:"extensions,omitempty"`
}

type gpxExtensions struct {
	Accuracy string `xml:"accuracy"`
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// WriteGPX writes points as a single running track. Points must already be
// in time order, which the run engine guarantees.
func WriteGPX(w io.Writer, name, description string, points []pacer.GPSPoint) error {
	if len(points) == 0 {
		return ErrNoPoints
	}

	doc := gpxDoc{
		Version:  "1.1",
		Creator:  gpxCreator,
		XMLNS:    gpxNamespace,
		XMLNSXSI: xsiNamespace,
		XSI:      gpxSchema,
		Metadata: gpxMetadata{Name: name, Description: description, Time: points[0].Timestamp.UTC()},
		Track:    gpxTrack{Name: name, Type: "running"},
	}
	doc.Track.Segment.Points = make([]gpxPoint, len(points))
	for i, p := range points {
		gp := gpxPoint{Lat: p.Latitude, Lon: p.Longitude, Time: p.Timestamp.UTC()}
		if p.Altitude != nil {
			gp.Elevation = oneDecimal(*p.Altitude)
		}
		if p.Accuracy != nil {
			gp.Extensions = &gpxExtensions{Accuracy: oneDecimal(*p.Accuracy)}
		}
		doc.Track.Segment.Points[i] = gp
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode gpx: %w", err)
	}
	return enc.Close()
}
