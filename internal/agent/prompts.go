package agent

const classifierPrompt = `You read a request for a social media post and report two fields.

platform: one of facebook, instagram, linkedin, unknown
content_type: one of text, image, video, unknown

Only name a platform or content type when the request states it outright.
When a field is not stated, answer unknown. Never infer a default from the
topic or tone of the request.

"post on facebook with an image about solar power" -> {"platform":"facebook","content_type":"image"}
"kire vai kmn asos re tui" -> {"platform":"unknown","content_type":"unknown"}

Respond with a single JSON object with the keys platform and content_type.`

const clarifierPrompt = `You help people use a tool that researches a topic, writes a social media
post and publishes it. Their last request did not say clearly which platform
(Facebook, Instagram or LinkedIn) or which kind of content (text, image or video)
they want.

Write a short, friendly reply that says what was missing, shows a few example
requests in the right shape, and invites them to try again.`

const clarifierRequestTemplate = `Original request: %q

Missing: the platform and/or the content type.`

const queryPrompt = `Write one web search query that finds recent, text-based articles about the
user's topic. Use the key entities and phrases from the request. Keep it short,
ideally under 50 characters. Output the query only, with no quotes or commentary.`

const queryRequestTemplate = `Request: %s
Platform: %s
Content type: %s
Today: %s`

const mediaPrompt = `Write a detailed prompt for generating a single %s for a social media post.
Describe subject, composition, style and mood. Output the prompt only.`

const mediaRequestTemplate = `Request: %s

Research notes:
%s`

const draftPrompt = `You write %[1]s posts.

Conventions for %[1]s:
- at most %[2]d characters
- hashtag style: %[3]s
- tone: %[4]s
- call to action: %[5]t

Rules:
- write about exactly the topic requested, nothing adjacent
- use the research notes for facts; do not invent figures, dates or events
- add hashtags relevant to this topic
- no placeholders for images or videos
- no event registrations or specific dates unless the notes contain them

Return the post text only.`

const draftRequestTemplate = `Topic: %q
Content type: %s

Research notes:
%s`

const qualityPrompt = `Review a social media post before it is published. Check that it suits the
platform, is likely to engage, is free of errors and uses relevant hashtags.

Respond with a single JSON object: {"status":"approved"|"needs_revision","feedback":"..."}`

const qualityRequestTemplate = `Platform: %s
Content type: %s
Post:
%s`

const finalizePrompt = `You tell the user how their social media request turned out. If the post was
published, congratulate them briefly and mention where it went. If it failed,
explain what went wrong in plain words and what they can do next, such as
saving a fresh access token. Keep it to a few sentences.`

const finalizeRequestTemplate = `Original request: %q
Outcome: %s`

const clarificationFallback = `**How to use this assistant**

I couldn't work out what you want to post. Please include:
- **Platform**: Facebook, Instagram or LinkedIn
- **Content type**: Text, Image or Video
- **Topic**: what the post should be about

**Example requests:**
- "Create a Facebook post with image about AI in healthcare"
- "Make an Instagram text post about healthy eating tips"
- "Generate LinkedIn video content about career growth"
- "Facebook post about Bangladesh cricket team with image"

**What I can do:**
- Research your topic on the web
- Write a post tailored to the platform
- Prepare an image or video when you ask for one
- Publish it to your account

Try again with a clearer request!`
