package geo

import (
	"context"
	"fmt"

	"github.com/ctessum/geom"
	"github.com/jackc/pgx/v4"
)

// PointsFromPostGIS loads the vertices of every geometry in a PostGIS
// table column. Geometries are exploded server-side with ST_DumpPoints so
// no client-side WKB decoding is needed; for Point and MultiPoint tables
// this yields exactly the stored positions.
func PointsFromPostGIS(ctx context.Context, dsn, schema, table, geomCol string) ([]geom.Point, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgis: %w", err)
	}
	defer conn.Close(ctx)

	q := fmt.Sprintf(
		`SELECT ST_X((d).geom), ST_Y((d).geom)
		 FROM (SELECT ST_DumpPoints(%q) AS d FROM %q.%q) AS dumped`,
		geomCol, schema, table,
	)
	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var pts []geom.Point
	for rows.Next() {
		var x, y float64
		if err := rows.Scan(&x, &y); err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}
		pts = append(pts, geom.Point{X: x, Y: y})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s.%s: %w", schema, table, err)
	}
	return pts, nil
}

// PolygonsFromPostGIS loads polygonal geometries from a PostGIS table
// column by dumping vertices with their ring paths and reassembling
// client-side. MultiPolygons are flattened into their member polygons.
func PolygonsFromPostGIS(ctx context.Context, dsn, schema, table, geomCol string) ([]geom.Polygonal, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgis: %w", err)
	}
	defer conn.Close(ctx)

	// gid separates table rows; path identifies (polygon,) ring, vertex
	// within each geometry.
	q := fmt.Sprintf(
		`SELECT gid, (d).path, ST_X((d).geom), ST_Y((d).geom)
		 FROM (SELECT row_number() OVER () AS gid, ST_DumpPoints(%q) AS d FROM %q.%q) AS dumped
		 ORDER BY gid, (d).path`,
		geomCol, schema, table,
	)
	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	type ringKey struct {
		gid  int64
		poly int32 // 0 for plain polygons
		ring int32
	}
	var order []ringKey
	rings := make(map[ringKey][]geom.Point)
	for rows.Next() {
		var gid int64
		var path []int32
		var x, y float64
		if err := rows.Scan(&gid, &path, &x, &y); err != nil {
			return nil, fmt.Errorf("scanning vertex: %w", err)
		}
		var k ringKey
		switch len(path) {
		case 2: // polygon: [ring, vertex]
			k = ringKey{gid: gid, ring: path[0]}
		case 3: // multipolygon: [polygon, ring, vertex]
			k = ringKey{gid: gid, poly: path[0], ring: path[1]}
		default:
			return nil, fmt.Errorf("geometry in %s.%s is not polygonal (path depth %d)", schema, table, len(path))
		}
		if _, seen := rings[k]; !seen {
			order = append(order, k)
		}
		rings[k] = append(rings[k], geom.Point{X: x, Y: y})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s.%s: %w", schema, table, err)
	}

	// Group rings into polygons. Ring numbering starts at 1; ring 1 is
	// the exterior and later rings are holes.
	var polys []geom.Polygonal
	var cur geom.Polygon
	var curGID int64 = -1
	var curPoly int32 = -1
	flush := func() {
		if cur != nil {
			polys = append(polys, cur)
			cur = nil
		}
	}
	for _, k := range order {
		if k.gid != curGID || k.poly != curPoly {
			flush()
			curGID, curPoly = k.gid, k.poly
		}
		cur = append(cur, rings[k])
	}
	flush()
	return polys, nil
}
