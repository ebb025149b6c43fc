package score

import (
	"math"

	"github.com/ppiankov/hazardscore/internal/model"
)

// EarthRadiusKm is the sphere radius used for great-circle distances
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in km between two WGS84 points.
// Coordinates are not validated; NaN inputs yield NaN.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// EstimateConsensus returns min(1, distinct nearby reporters / targetUsers).
//
// A report in sameCategory corroborates the candidate when it is not the candidate
// itself (compared by ID) and lies within radiusKm. Each user counts once no matter
// how many reports they filed. The candidate's own user always counts, so a solo
// report yields 1/targetUsers. Ignored reports never corroborate.
func EstimateConsensus(candidate model.Report, sameCategory []model.Report, radiusKm float64, targetUsers int) float64 {
	users := distinctCorroborators(candidate, sameCategory, radiusKm)
	if targetUsers <= 0 {
		targetUsers = 1
	}
	return math.Min(1.0, float64(len(users))/float64(targetUsers))
}

func distinctCorroborators(candidate model.Report, sameCategory []model.Report, radiusKm float64) map[string]struct{} {
	users := make(map[string]struct{})
	for _, r := range sameCategory {
		if r.ID == candidate.ID || r.Ignored() {
			continue
		}
		// NaN distance compares false and drops out here
		if Haversine(candidate.Lat, candidate.Lon, r.Lat, r.Lon) <= radiusKm {
			users[r.UserID] = struct{}{}
		}
	}
	users[candidate.UserID] = struct{}{}
	return users
}
