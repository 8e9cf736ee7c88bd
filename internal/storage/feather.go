package storage

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/jengzang/vessel-tracks/internal/models"
)

// OutputSchema is the Arrow schema of a day table, column for column with models.OutputColumns
var OutputSchema = arrow.NewSchema([]arrow.Field{
	{Name: "timestamp", Type: &arrow.TimestampType{Unit: arrow.Second, TimeZone: "UTC"}},
	{Name: "year", Type: arrow.PrimitiveTypes.Int32},
	{Name: "month", Type: arrow.PrimitiveTypes.Int32},
	{Name: "day", Type: arrow.PrimitiveTypes.Int32},
	{Name: "hour", Type: arrow.PrimitiveTypes.Int32},
	{Name: "minute", Type: arrow.PrimitiveTypes.Int32},
	{Name: "second", Type: arrow.PrimitiveTypes.Int32},
	{Name: "mmsi", Type: arrow.PrimitiveTypes.Int64},
	{Name: "lat", Type: arrow.PrimitiveTypes.Float64},
	{Name: "lon", Type: arrow.PrimitiveTypes.Float64},
	{Name: "kph", Type: arrow.PrimitiveTypes.Float64},
	{Name: "dist", Type: arrow.PrimitiveTypes.Float64},
	{Name: "travel_time", Type: arrow.PrimitiveTypes.Float64},
	{Name: "stationary", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "segment_id", Type: arrow.BinaryTypes.String},
	{Name: "message_id", Type: arrow.BinaryTypes.String},
	{Name: "type", Type: arrow.BinaryTypes.String},
	{Name: "speed", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "course", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "heading", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "shipname", Type: arrow.BinaryTypes.String},
	{Name: "callsign", Type: arrow.BinaryTypes.String},
	{Name: "destination", Type: arrow.BinaryTypes.String},
	{Name: "elevation_m", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "distance_from_shore_m", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "distance_from_port_m", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// WriteFeather writes output rows to path as a Feather v2 (Arrow IPC) file.
// The file is replaced atomically.
func WriteFeather(path string, rows []models.OutputRow) error {
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, OutputSchema)
	defer b.Release()

	for _, r := range rows {
		appendOutputRow(b, r)
	}
	rec := b.NewRecord()
	defer rec.Release()

	return writeAtomic(path, func(f *os.File) error {
		w, err := ipc.NewFileWriter(f, ipc.WithSchema(OutputSchema), ipc.WithAllocator(pool))
		if err != nil {
			return fmt.Errorf("failed to open feather writer: %w", err)
		}
		if err := w.Write(rec); err != nil {
			w.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to finish %s: %w", path, err)
		}
		return nil
	})
}

func appendOutputRow(b *array.RecordBuilder, r models.OutputRow) {
	b.Field(0).(*array.TimestampBuilder).Append(arrow.Timestamp(r.Timestamp.Unix()))
	for i, v := range []int{r.Year, r.Month, r.Day, r.Hour, r.Minute, r.Second} {
		b.Field(1 + i).(*array.Int32Builder).Append(int32(v))
	}
	b.Field(7).(*array.Int64Builder).Append(r.MMSI)
	for i, v := range []float64{r.Lat, r.Lon, r.SpeedKph, r.DistKm, r.TravelTimeHr} {
		appendFloat(b.Field(8+i).(*array.Float64Builder), v)
	}
	b.Field(13).(*array.BooleanBuilder).Append(r.Stationary)
	for i, v := range []string{r.SegmentID, r.MessageID, r.Type} {
		b.Field(14 + i).(*array.StringBuilder).Append(v)
	}
	for i, v := range []float64{r.Speed, r.Course, r.Heading} {
		appendFloat(b.Field(17+i).(*array.Float64Builder), v)
	}
	for i, v := range []string{r.ShipName, r.Callsign, r.Destination} {
		b.Field(20 + i).(*array.StringBuilder).Append(v)
	}
	for i, v := range []float64{r.ElevationM, r.DistanceFromShoreM, r.DistanceFromPortM} {
		appendFloat(b.Field(23+i).(*array.Float64Builder), v)
	}
}

func appendFloat(b *array.Float64Builder, v float64) {
	if math.IsNaN(v) {
		b.AppendNull()
		return
	}
	b.Append(v)
}

// ReadFeather reads a file written by WriteFeather back into output rows
func ReadFeather(path string) ([]models.OutputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	pool := memory.NewGoAllocator()
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(pool))
	if err != nil {
		return nil, fmt.Errorf("failed to open feather reader for %s: %w", path, err)
	}
	defer r.Close()

	if err := checkSchema(r.Schema()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var rows []models.OutputRow
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d of %s: %w", i, path, err)
		}
		rows = appendRecordRows(rows, rec)
	}
	return rows, nil
}

func checkSchema(schema *arrow.Schema) error {
	if schema.NumFields() != len(models.OutputColumns) {
		return fmt.Errorf("expected %d columns, found %d", len(models.OutputColumns), schema.NumFields())
	}
	for i, name := range models.OutputColumns {
		field := schema.Field(i)
		if field.Name != name || !arrow.TypeEqual(field.Type, OutputSchema.Field(i).Type) {
			return fmt.Errorf("%w %q at position %d", ErrMissingColumn, name, i)
		}
	}
	return nil
}

func appendRecordRows(rows []models.OutputRow, rec arrow.Record) []models.OutputRow {
	ts := rec.Column(0).(*array.Timestamp)
	ints := make([]*array.Int32, 6)
	for i := range ints {
		ints[i] = rec.Column(1 + i).(*array.Int32)
	}
	mmsi := rec.Column(7).(*array.Int64)
	float := func(i int) func(int) float64 {
		col := rec.Column(i).(*array.Float64)
		return func(j int) float64 {
			if col.IsNull(j) {
				return math.NaN()
			}
			return col.Value(j)
		}
	}
	str := func(i int) func(int) string {
		col := rec.Column(i).(*array.String)
		return col.Value
	}
	stationary := rec.Column(13).(*array.Boolean)

	lat, lon, kph, dist, travel := float(8), float(9), float(10), float(11), float(12)
	segment, message, typ := str(14), str(15), str(16)
	speed, course, heading := float(17), float(18), float(19)
	ship, callsign, dest := str(20), str(21), str(22)
	elev, shore, port := float(23), float(24), float(25)

	for j := 0; j < int(rec.NumRows()); j++ {
		rows = append(rows, models.OutputRow{
			TrackPoint: models.TrackPoint{
				Ping: models.Ping{
					Timestamp:          time.Unix(int64(ts.Value(j)), 0).UTC(),
					MMSI:               mmsi.Value(j),
					Lat:                lat(j),
					Lon:                lon(j),
					SegmentID:          segment(j),
					MessageID:          message(j),
					Type:               typ(j),
					Speed:              speed(j),
					Course:             course(j),
					Heading:            heading(j),
					ShipName:           ship(j),
					Callsign:           callsign(j),
					Destination:        dest(j),
					ElevationM:         elev(j),
					DistanceFromShoreM: shore(j),
					DistanceFromPortM:  port(j),
				},
				DistKm:       dist(j),
				TravelTimeHr: travel(j),
				SpeedKph:     kph(j),
				Stationary:   stationary.Value(j),
			},
			Year:   int(ints[0].Value(j)),
			Month:  int(ints[1].Value(j)),
			Day:    int(ints[2].Value(j)),
			Hour:   int(ints[3].Value(j)),
			Minute: int(ints[4].Value(j)),
			Second: int(ints[5].Value(j)),
		})
	}
	return rows
}
