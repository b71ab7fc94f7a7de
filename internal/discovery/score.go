package discovery

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/jobs"
	"github.com/spigell/quickapply/internal/logger"
	"github.com/spigell/quickapply/internal/matching"
	"github.com/spigell/quickapply/internal/resume"
)

// DescriptionFetcher loads the full description of a posting.
type DescriptionFetcher interface {
	Description(ctx context.Context, url string) (string, error)
}

// Score fetches every description lazily and attaches the matcher verdict to
// the listing. A description that cannot be fetched is scored as empty.
func Score(ctx context.Context, listings *jobs.Listings, fetcher DescriptionFetcher, matcher matching.Matcher, profile *resume.Profile, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	for _, listing := range listings.Items {
		if err := ctx.Err(); err != nil {
			return err
		}

		jobLog := logger.WithJob(log, listing.URL, listing.Title, listing.Company)

		if listing.Description == "" {
			description, err := fetcher.Description(ctx, listing.URL)
			if err != nil {
				jobLog.Warn("could not get job description", zap.Error(err))
			}
			listing.Description = description
		}

		assessment := matcher.Evaluate(ctx, profile, listing.Title, listing.Description)
		listing.MatchScore = assessment.Score
		listing.IsSuitable = assessment.Fit
		listing.MatchExplanation = assessment.Explanation

		jobLog.Debug("job scored",
			zap.Float64("match_score", assessment.Score),
			zap.Bool("suitable", assessment.Fit),
		)
	}
	return nil
}
