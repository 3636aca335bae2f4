package mcpserver

func describeCoupling() string {
	return `Finds files that change together in git history, across one or more repositories.

USE WHEN:
- Discovering implicit dependencies not visible in code
- Checking what else usually changes when editing a file
- Finding files split across repositories that move in lockstep
- Identifying shotgun surgery before a refactor

INTERPRETING RESULTS:
- Score: share of the pair's changes where both files changed (0.0-1.0)
- Score above 0.5: the files usually change together
- Together: number of changes touching both files
- Total: number of changes touching either file
- Pairs across repositories carry the repository name as a prefix
- An empty list means no two files ever changed together

METRICS RETURNED:
- File pairs ranked by co-change count, then score
- Per-pair together and total change counts
- Summary with pair counts, strong pairs, mean and median score
- Sources, grouping and a fingerprint of the result

Requires git repositories. Set time_window_minutes to treat commits made close together as one change.`
}
